// Package calibration nudges additive alternative-specific constants until
// simulated mode shares match observed shares per region and purpose.
package calibration

import (
	"sort"
	"sync"

	"github.com/okian/tripsim/internal/domain/model"
)

// Key identifies one calibration factor.
type Key struct {
	Region  model.RegionID
	Purpose model.Purpose
	Mode    model.Mode
}

// Stratum is the population over which shares are computed.
type Stratum struct {
	Region  model.RegionID
	Purpose model.Purpose
}

// Stratum returns the stratum k belongs to.
func (k Key) Stratum() Stratum { return Stratum{Region: k.Region, Purpose: k.Purpose} }

func (k Key) less(o Key) bool {
	if k.Region != o.Region {
		return k.Region < o.Region
	}
	if k.Purpose != o.Purpose {
		return k.Purpose < o.Purpose
	}
	return k.Mode < o.Mode
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
}

// FactorTable holds the additive calibration term of every (region, purpose,
// mode). Choice tasks read it concurrently during a round; it is written only
// between rounds.
type FactorTable struct {
	mu      sync.RWMutex
	factors map[Key]float64
}

// NewFactorTable returns an empty table. Missing factors read as zero.
func NewFactorTable() *FactorTable {
	return &FactorTable{factors: make(map[Key]float64)}
}

// Get returns the factor for (region, purpose, mode), or zero.
func (t *FactorTable) Get(region model.RegionID, purpose model.Purpose, mode model.Mode) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.factors[Key{Region: region, Purpose: purpose, Mode: mode}]
}

// Apply adds the factors of (region, purpose) to every available utility in u.
func (t *FactorTable) Apply(region model.RegionID, purpose model.Purpose, u model.Utilities) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for m, v := range u {
		if f, ok := t.factors[Key{Region: region, Purpose: purpose, Mode: m}]; ok {
			u[m] = v + f
		}
	}
}

// Set overwrites one factor.
func (t *FactorTable) Set(k Key, v float64) {
	t.mu.Lock()
	t.factors[k] = v
	t.mu.Unlock()
}

// Add increments one factor and returns the new value.
func (t *FactorTable) Add(k Key, delta float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.factors[k] += delta
	return t.factors[k]
}

// Len returns the number of stored factors.
func (t *FactorTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.factors)
}

// Snapshot returns a copy of the table keyed in sorted order.
func (t *FactorTable) Snapshot() ([]Key, map[Key]float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	keys := make([]Key, 0, len(t.factors))
	out := make(map[Key]float64, len(t.factors))
	for k, v := range t.factors {
		keys = append(keys, k)
		out[k] = v
	}
	sortKeys(keys)
	return keys, out
}
