// Package tripgen decides how many trips a person makes per purpose with
// hurdle count models: a binary stage for the zero outcome followed by a
// zero-truncated count stage, sampled by inverting the cumulative distribution.
package tripgen

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultMaxCount caps the inverse-CDF walk.
const DefaultMaxCount = 200

var standardLogistic = distuv.Logistic{Mu: 0, S: 1}

func logistic(x float64) float64 { return standardLogistic.CDF(x) }

// PMF returns the probability of exactly i trips.
type PMF func(i int) float64

// CountModel builds the count distribution of one person from the linear
// predictors of the binary and count stages.
type CountModel interface {
	PMF(binaryUtility, countUtility float64) PMF
	MaxCount() int
}

// Option configures a count model.
type Option func(*options)

type options struct {
	maxCount int
}

// WithMaxCount caps the number of steps of the inverse-CDF walk.
func WithMaxCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCount = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{maxCount: DefaultMaxCount}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Invert returns the first count whose cumulative probability exceeds u. If the
// walk reaches maxCount first it returns ErrCountNotConverged, which happens
// when accumulated rounding never lets the cumulative probability pass u.
func Invert(u float64, pmf PMF, maxCount int) (int, error) {
	cum := 0.0
	for i := 0; i <= maxCount; i++ {
		cum += pmf(i)
		if cum > u {
			return i, nil
		}
	}
	return maxCount, fmt.Errorf("%w: cumulative %.12f after %d steps, draw %.12f", ErrCountNotConverged, cum, maxCount, u)
}

// Sample draws a trip count for one person.
func Sample(rng *rand.Rand, m CountModel, binaryUtility, countUtility float64) (int, error) {
	if math.IsNaN(binaryUtility) || math.IsNaN(countUtility) {
		return 0, ErrInvalidPredictor
	}
	return Invert(rng.Float64(), m.PMF(binaryUtility, countUtility), m.MaxCount())
}

// HurdleNB is a hurdle model with a zero-truncated negative binomial count stage.
type HurdleNB struct {
	theta    float64
	maxCount int
}

// NewHurdleNB returns a hurdle negative binomial model with dispersion theta.
func NewHurdleNB(theta float64, opts ...Option) (*HurdleNB, error) {
	if !(theta > 0) || math.IsInf(theta, 0) {
		return nil, fmt.Errorf("%w: theta %v must be positive", ErrInvalidModel, theta)
	}
	o := buildOptions(opts)
	return &HurdleNB{theta: theta, maxCount: o.maxCount}, nil
}

// Theta returns the dispersion parameter.
func (m *HurdleNB) Theta() float64 { return m.theta }

// MaxCount implements CountModel.
func (m *HurdleNB) MaxCount() int { return m.maxCount }

// PMF implements CountModel. With φ = logistic(binaryUtility), μ = exp(countUtility)
// and NB(θ, p = θ/(θ+μ)):
//
//	P(0) = φ
//	P(i) = (1-φ) · NB.pmf(i) / (1 - NB.cdf(0)),  i ≥ 1
//
// evaluated in log space.
func (m *HurdleNB) PMF(binaryUtility, countUtility float64) PMF {
	phi := logistic(binaryUtility)
	theta := m.theta
	mu := math.Exp(countUtility)
	// log p = -log(1 + μ/θ) stays accurate when μ is tiny next to θ
	logP := -math.Log1p(mu / theta)
	log1mP := countUtility - math.Log(theta) + logP
	if math.IsInf(mu, 1) {
		log1mP = 0
	}
	// 1 - NB.cdf(0) = 1 - p^θ
	truncMass := -math.Expm1(theta * logP)
	logPositive := math.Log1p(-phi)
	lgTheta, _ := math.Lgamma(theta)

	if !(truncMass > 0) {
		// μ → 0: the zero-truncated distribution collapses onto one trip
		return func(i int) float64 {
			switch i {
			case 0:
				return phi
			case 1:
				return 1 - phi
			default:
				return 0
			}
		}
	}
	logTrunc := math.Log(truncMass)
	return func(i int) float64 {
		if i < 0 {
			return 0
		}
		if i == 0 {
			return phi
		}
		lgI, _ := math.Lgamma(float64(i) + theta)
		lgFact, _ := math.Lgamma(float64(i) + 1)
		logNB := lgI - lgTheta - lgFact + theta*logP + float64(i)*log1mP
		return math.Exp(logPositive + logNB - logTrunc)
	}
}

// HurdlePOLR is a hurdle model whose count stage is a proportional-odds ordered
// logit over counts 1..K+1, where K is the number of cutpoints.
type HurdlePOLR struct {
	cutpoints []float64
	maxCount  int
}

// NewHurdlePOLR returns a hurdle ordered-logit model. Cutpoints must be finite
// and strictly increasing.
func NewHurdlePOLR(cutpoints []float64, opts ...Option) (*HurdlePOLR, error) {
	if len(cutpoints) == 0 {
		return nil, fmt.Errorf("%w: no cutpoints", ErrInvalidModel)
	}
	for i, c := range cutpoints {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("%w: cutpoint %d is %v", ErrInvalidModel, i, c)
		}
		if i > 0 && !(c > cutpoints[i-1]) {
			return nil, fmt.Errorf("%w: cutpoints must increase (%v after %v)", ErrInvalidModel, c, cutpoints[i-1])
		}
	}
	o := buildOptions(opts)
	return &HurdlePOLR{cutpoints: append([]float64(nil), cutpoints...), maxCount: o.maxCount}, nil
}

// MaxCount implements CountModel.
func (m *HurdlePOLR) MaxCount() int { return m.maxCount }

// PMF implements CountModel. The cumulative probability at count k is
//
//	F(0) = φ
//	F(k) = φ + (1-φ) · logistic(c_k - μ),  k = 1..K
//	F(K+1) = 1
//
// with φ = logistic(binaryUtility) and μ = countUtility.
func (m *HurdlePOLR) PMF(binaryUtility, countUtility float64) PMF {
	phi := logistic(binaryUtility)
	k := len(m.cutpoints)
	cdf := make([]float64, k+2)
	cdf[0] = phi
	for i, c := range m.cutpoints {
		cdf[i+1] = phi + (1-phi)*logistic(c-countUtility)
	}
	cdf[k+1] = 1
	return func(i int) float64 {
		switch {
		case i < 0 || i > k+1:
			return 0
		case i == 0:
			return cdf[0]
		default:
			return cdf[i] - cdf[i-1]
		}
	}
}
