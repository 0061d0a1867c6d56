package logit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/tripsim/internal/domain/model"
)

// Probabilities maps each alternative of a decision to its choice probability.
// Unavailable alternatives are present with probability 0.
type Probabilities map[model.Mode]float64

// Sum returns the total probability mass, summed in mode order.
func (p Probabilities) Sum() float64 {
	vals := make([]float64, 0, len(p))
	for _, m := range model.Modes() {
		if v, ok := p[m]; ok {
			vals = append(vals, v)
		}
	}
	return floats.Sum(vals)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// ordered returns the keys of u in mode enumeration order.
func ordered(u model.Utilities) []model.Mode {
	out := make([]model.Mode, 0, len(u))
	for _, m := range model.Modes() {
		if _, ok := u[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// maxFinite returns the largest finite utility; false when none exists.
func maxFinite(u model.Utilities) (float64, bool) {
	best, found := math.Inf(-1), false
	for _, v := range u {
		if finite(v) && v > best {
			best, found = v, true
		}
	}
	return best, found
}

// MNL computes multinomial logit probabilities
//
//	P(a) = exp(u_a) / Σ_b exp(u_b)
//
// over the alternatives with finite utility.
func MNL(u model.Utilities) (Probabilities, error) {
	shift, ok := maxFinite(u)
	if !ok {
		return nil, ErrNoAvailableAlternative
	}
	probs := make(Probabilities, len(u))
	denom := 0.0
	for _, m := range ordered(u) {
		v := u[m]
		if !finite(v) {
			probs[m] = 0
			continue
		}
		e := math.Exp(v - shift)
		probs[m] = e
		denom += e
	}
	for m, e := range probs {
		probs[m] = e / denom
	}
	return probs, nil
}

// Nested computes two-level nested logit probabilities. For nest n with
// coefficient λ:
//
//	expNestUtil(n) = (Σ_{b∈n} exp(u_b/λ))^λ
//	P(a∈n) = exp(u_a/λ)·expNestUtil(n) / (Σ_{b∈n} exp(u_b/λ) · Σ_m expNestUtil(m))
//
// A nest without available members contributes nothing. A nil tree falls back to MNL.
func Nested(u model.Utilities, tree *NestTree) (Probabilities, error) {
	if tree == nil {
		return MNL(u)
	}
	keys := ordered(u)
	for _, m := range keys {
		if _, ok := tree.NestOf(m); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUncoveredAlternative, m)
		}
	}
	shift, ok := maxFinite(u)
	if !ok {
		return nil, ErrNoAvailableAlternative
	}

	nests := tree.Nests()
	inner := make([]float64, len(nests))
	expNest := make([]float64, len(nests))
	for i, n := range nests {
		for _, b := range n.Modes {
			if v, ok := u[b]; ok && finite(v) {
				inner[i] += math.Exp((v - shift) / n.Lambda)
			}
		}
		if inner[i] > 0 {
			expNest[i] = math.Pow(inner[i], n.Lambda)
		}
	}
	total := floats.Sum(expNest)

	probs := make(Probabilities, len(u))
	for _, m := range keys {
		v := u[m]
		i, _ := tree.NestOf(m)
		if !finite(v) || inner[i] == 0 {
			probs[m] = 0
			continue
		}
		lambda := nests[i].Lambda
		probs[m] = math.Exp((v-shift)/lambda) * expNest[i] / (inner[i] * total)
	}
	return probs, nil
}

// Logsum returns the expected maximum utility of an MNL choice scaled by mu:
//
//	log(Σ exp(u·μ)) / μ
func Logsum(u model.Utilities, mu float64) (float64, error) {
	if !(mu > 0) || !finite(mu) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScale, mu)
	}
	scaled := make([]float64, 0, len(u))
	for _, m := range ordered(u) {
		if v := u[m]; finite(v) {
			scaled = append(scaled, v*mu)
		}
	}
	if len(scaled) == 0 {
		return 0, ErrNoAvailableAlternative
	}
	return floats.LogSumExp(scaled) / mu, nil
}

// NestedLogsum returns the expected maximum utility of a nested choice:
//
//	log(Σ_m (Σ_{b∈m} exp(μ·u_b/λ_m))^λ_m) / μ
//
// A nil tree falls back to Logsum.
func NestedLogsum(u model.Utilities, tree *NestTree, mu float64) (float64, error) {
	if tree == nil {
		return Logsum(u, mu)
	}
	if !(mu > 0) || !finite(mu) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScale, mu)
	}
	for _, m := range ordered(u) {
		if _, ok := tree.NestOf(m); !ok {
			return 0, fmt.Errorf("%w: %s", ErrUncoveredAlternative, m)
		}
	}
	terms := make([]float64, 0, len(tree.Nests()))
	for _, n := range tree.Nests() {
		members := make([]float64, 0, len(n.Modes))
		for _, b := range n.Modes {
			if v, ok := u[b]; ok && finite(v) {
				members = append(members, mu*v/n.Lambda)
			}
		}
		if len(members) == 0 {
			continue
		}
		terms = append(terms, n.Lambda*floats.LogSumExp(members))
	}
	if len(terms) == 0 {
		return 0, ErrNoAvailableAlternative
	}
	return floats.LogSumExp(terms) / mu, nil
}
