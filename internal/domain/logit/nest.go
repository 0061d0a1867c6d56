// Package logit computes choice probabilities and logsums for multinomial and
// two-level nested logit models.
package logit

import (
	"fmt"

	"github.com/okian/tripsim/internal/domain/model"
)

// Nest groups correlated alternatives under a nesting coefficient.
// Lambda in (0,1]; 1 means the members are uncorrelated.
type Nest struct {
	Modes  []model.Mode `yaml:"modes"`
	Lambda float64      `yaml:"lambda"`
}

// NestTree is a validated two-level nesting structure. It is immutable after
// construction and safe for concurrent reads.
type NestTree struct {
	nests []Nest
	owner map[model.Mode]int
}

// NewNestTree validates nests against the universe of modes the choice may offer.
// Every lambda must lie in (0,1], nests must be non-empty, no mode may belong to
// two nests, and every mode of universe must belong to exactly one nest.
func NewNestTree(nests []Nest, universe []model.Mode) (*NestTree, error) {
	if len(nests) == 0 {
		return nil, fmt.Errorf("%w: no nests", ErrInvalidNest)
	}
	t := &NestTree{
		nests: make([]Nest, len(nests)),
		owner: make(map[model.Mode]int),
	}
	for i, n := range nests {
		if !(n.Lambda > 0 && n.Lambda <= 1) {
			return nil, fmt.Errorf("%w: nest %d lambda %v outside (0,1]", ErrInvalidNest, i, n.Lambda)
		}
		if len(n.Modes) == 0 {
			return nil, fmt.Errorf("%w: nest %d is empty", ErrInvalidNest, i)
		}
		members := make([]model.Mode, len(n.Modes))
		for j, m := range n.Modes {
			if !m.Valid() {
				return nil, fmt.Errorf("%w: nest %d has invalid mode %v", ErrInvalidNest, i, m)
			}
			if prev, dup := t.owner[m]; dup {
				return nil, fmt.Errorf("%w: mode %s in nests %d and %d", ErrInvalidNest, m, prev, i)
			}
			t.owner[m] = i
			members[j] = m
		}
		t.nests[i] = Nest{Modes: members, Lambda: n.Lambda}
	}
	for _, m := range universe {
		if _, ok := t.owner[m]; !ok {
			return nil, fmt.Errorf("%w: mode %s not covered by any nest", ErrInvalidNest, m)
		}
	}
	return t, nil
}

// FlatTree returns a tree with one degenerate nest (lambda 1) per mode.
func FlatTree(modes []model.Mode) *NestTree {
	nests := make([]Nest, len(modes))
	for i, m := range modes {
		nests[i] = Nest{Modes: []model.Mode{m}, Lambda: 1}
	}
	t, err := NewNestTree(nests, modes)
	if err != nil {
		// only reachable with duplicate or invalid modes
		panic(err)
	}
	return t
}

// Nests returns the nests in declaration order. Callers must not mutate them.
func (t *NestTree) Nests() []Nest { return t.nests }

// NestOf returns the index of the nest owning m.
func (t *NestTree) NestOf(m model.Mode) (int, bool) {
	i, ok := t.owner[m]
	return i, ok
}

// Modes returns every mode covered by the tree, nest by nest.
func (t *NestTree) Modes() []model.Mode {
	out := make([]model.Mode, 0, len(t.owner))
	for _, n := range t.nests {
		out = append(out, n.Modes...)
	}
	return out
}
