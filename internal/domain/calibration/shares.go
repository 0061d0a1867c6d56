package calibration

import (
	"fmt"
	"math"

	"github.com/okian/tripsim/internal/domain/model"
)

// Observation is one row of the observed-share table.
type Observation struct {
	Region  model.RegionID
	Purpose model.Purpose
	Mode    model.Mode
	Share   float64
	// Factor is the starting calibration term, usually zero.
	Factor float64
}

// ObservedShares is the validated target of calibration.
type ObservedShares struct {
	shares  map[Key]float64
	initial map[Key]float64
	keys    []Key
}

// NewObservedShares validates rows: valid purpose and mode, share in [0,1],
// finite starting factor, no duplicate key.
func NewObservedShares(rows []Observation) (*ObservedShares, error) {
	o := &ObservedShares{
		shares:  make(map[Key]float64, len(rows)),
		initial: make(map[Key]float64, len(rows)),
	}
	for i, r := range rows {
		if !r.Purpose.Valid() || !r.Mode.Valid() {
			return nil, fmt.Errorf("%w: row %d has purpose %d mode %d", ErrInvalidObservation, i, r.Purpose, r.Mode)
		}
		if math.IsNaN(r.Share) || r.Share < 0 || r.Share > 1 {
			return nil, fmt.Errorf("%w: row %d share %v outside [0,1]", ErrInvalidObservation, i, r.Share)
		}
		if math.IsNaN(r.Factor) || math.IsInf(r.Factor, 0) {
			return nil, fmt.Errorf("%w: row %d factor %v", ErrInvalidObservation, i, r.Factor)
		}
		k := Key{Region: r.Region, Purpose: r.Purpose, Mode: r.Mode}
		if _, dup := o.shares[k]; dup {
			return nil, fmt.Errorf("%w: region %d %s %s", ErrDuplicateObservation, r.Region, r.Purpose, r.Mode)
		}
		o.shares[k] = r.Share
		o.initial[k] = r.Factor
		o.keys = append(o.keys, k)
	}
	sortKeys(o.keys)
	return o, nil
}

// Keys returns the observed keys in (region, purpose, mode) order.
func (o *ObservedShares) Keys() []Key { return o.keys }

// Share returns the observed share of k.
func (o *ObservedShares) Share(k Key) (float64, bool) {
	v, ok := o.shares[k]
	return v, ok
}

// Len returns the number of observed keys.
func (o *ObservedShares) Len() int { return len(o.keys) }

// InitialFactors returns a factor table seeded from the factor column.
func (o *ObservedShares) InitialFactors() *FactorTable {
	t := NewFactorTable()
	for k, v := range o.initial {
		t.Set(k, v)
	}
	return t
}

// Tally counts resolved choices per (region, purpose, mode). Each task fills
// its own tally; tallies are merged after the barrier.
type Tally struct {
	counts map[Key]int
	totals map[Stratum]int
}

// NewTally returns an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[Key]int), totals: make(map[Stratum]int)}
}

// Add records one trip resolved to mode.
func (t *Tally) Add(region model.RegionID, purpose model.Purpose, mode model.Mode) {
	k := Key{Region: region, Purpose: purpose, Mode: mode}
	t.counts[k]++
	t.totals[k.Stratum()]++
}

// Merge adds every count of other into t.
func (t *Tally) Merge(other *Tally) {
	if other == nil {
		return
	}
	for k, n := range other.counts {
		t.counts[k] += n
	}
	for s, n := range other.totals {
		t.totals[s] += n
	}
}

// Count returns the number of trips resolved to k.
func (t *Tally) Count(k Key) int { return t.counts[k] }

// Trips returns the number of resolved trips in stratum s.
func (t *Tally) Trips(s Stratum) int { return t.totals[s] }

// Total returns the number of resolved trips across all strata.
func (t *Tally) Total() int {
	n := 0
	for _, v := range t.totals {
		n += v
	}
	return n
}

// Share returns the simulated share of k within its stratum. A stratum with no
// trips has share zero for every mode.
func (t *Tally) Share(k Key) float64 {
	total := t.totals[k.Stratum()]
	if total == 0 {
		return 0
	}
	return float64(t.counts[k]) / float64(total)
}
