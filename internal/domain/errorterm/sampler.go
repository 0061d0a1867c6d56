// Package errorterm draws random-utility perturbations: independent standard
// Gumbel terms for flat logit models and within-nest correlated GEV terms for
// nested models.
package errorterm

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/okian/tripsim/internal/domain/logit"
	"github.com/okian/tripsim/internal/domain/model"
)

// Sampler draws one Noise vector per decision. It holds no random state; the
// caller passes the generator owned by its task.
type Sampler struct {
	modes []model.Mode
	tree  *logit.NestTree
}

// NewFlatSampler returns a sampler drawing independent Gumbel(0,1) terms for modes.
func NewFlatSampler(modes []model.Mode) *Sampler {
	return &Sampler{modes: append([]model.Mode(nil), modes...)}
}

// NewNestedSampler returns a sampler drawing correlated terms within each nest of
// tree. Lambda validation already happened when the tree was built. A nil tree
// yields a flat sampler over every mode.
func NewNestedSampler(tree *logit.NestTree) *Sampler {
	if tree == nil {
		return NewFlatSampler(model.Modes())
	}
	return &Sampler{modes: tree.Modes(), tree: tree}
}

// Nested reports whether the sampler correlates terms within nests.
func (s *Sampler) Nested() bool { return s.tree != nil }

// Sample draws a Noise vector. Draw order is fixed (nest by nest, member by
// member), so equal generators produce equal vectors.
func (s *Sampler) Sample(rng *rand.Rand) model.Noise {
	out := make(model.Noise, len(s.modes))
	if s.tree == nil {
		g := distuv.GumbelRight{Mu: 0, Beta: 1, Src: rng}
		for _, m := range s.modes {
			out[m] = g.Rand()
		}
		return out
	}
	for _, n := range s.tree.Nests() {
		sampleNest(rng, n, out)
	}
	return out
}

func sampleNest(rng *rand.Rand, n logit.Nest, out model.Noise) {
	if n.Lambda == 1 {
		g := distuv.GumbelRight{Mu: 0, Beta: 1, Src: rng}
		for _, m := range n.Modes {
			out[m] = g.Rand()
		}
		return
	}
	lambda := n.Lambda
	exp1 := distuv.Exponential{Rate: 1, Src: rng}
	s := positiveStable(rng, lambda)
	for _, m := range n.Modes {
		e := exp1.Rand()
		// -log(1/exp(x)) reduces to x; the literal form would overflow for large x.
		out[m] = lambda * (s - math.Log(e))
	}
}

// positiveStable draws the log of a positive stable variate with index lambda
// using the Chambers–Mallows–Stuck construction:
//
//	a = log sin((1-λ)u) + λ/(1-λ)·log sin(λu) - 1/(1-λ)·log sin(u)
//	s = (1-λ)/λ · (a - log w)
//
// with u ~ U(0,π) and w ~ Exp(1).
func positiveStable(rng *rand.Rand, lambda float64) float64 {
	uni := distuv.Uniform{Min: 0, Max: math.Pi, Src: rng}
	u := uni.Rand()
	for u == 0 {
		u = uni.Rand()
	}
	w := math.Log(distuv.Exponential{Rate: 1, Src: rng}.Rand())
	a := math.Log(math.Sin((1-lambda)*u)) +
		(lambda/(1-lambda))*math.Log(math.Sin(lambda*u)) -
		(1/(1-lambda))*math.Log(math.Sin(u))
	return ((1 - lambda) / lambda) * (a - w)
}
