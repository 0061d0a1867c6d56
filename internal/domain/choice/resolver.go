// Package choice selects an alternative by maximising random utility: the
// simulation-consistent way to draw from a logit model without building its
// probability vector.
package choice

import (
	"math"

	"github.com/okian/tripsim/internal/domain/logit"
	"github.com/okian/tripsim/internal/domain/model"
)

// Resolve returns the alternative with the largest systematic utility plus
// noise. Only alternatives with finite systematic utility compete; NaN counts as
// unavailable. A missing noise entry counts as zero.
//
// ok is false when no alternative is available (an infeasible choice, which is
// an expected outcome rather than an error).
//
// Ties go to the alternative that comes first in mode enumeration order.
// Callers should not rely on this.
func Resolve(u model.Utilities, noise model.Noise) (best model.Mode, ok bool) {
	best = model.ModeNone
	bestTotal := math.Inf(-1)
	for _, m := range model.Modes() {
		v, present := u[m]
		if !present || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		total := v + noise[m]
		if math.IsNaN(total) || math.IsInf(total, 0) {
			continue
		}
		if !ok || total > bestTotal {
			best, bestTotal, ok = m, total, true
		}
	}
	return best, ok
}

// Draw inverts the cumulative distribution of probs at r in [0,1), walking
// alternatives in mode enumeration order. ok is false when probs carries no mass.
func Draw(probs logit.Probabilities, r float64) (model.Mode, bool) {
	last := model.ModeNone
	cum := 0.0
	for _, m := range model.Modes() {
		p, present := probs[m]
		if !present || !(p > 0) {
			continue
		}
		cum += p
		last = m
		if r < cum {
			return m, true
		}
	}
	// rounding can leave cum just below r
	return last, last != model.ModeNone
}
