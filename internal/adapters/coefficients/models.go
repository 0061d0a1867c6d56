// Package coefficients loads the per-purpose model file: count model type and
// parameters, linear-predictor coefficients and the mode-choice nesting.
package coefficients

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/tripsim/internal/domain/logit"
	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/internal/domain/tripgen"
)

// Count model kinds.
const (
	KindNB   = "nb"
	KindPOLR = "polr"
)

// File is the on-disk layout of a model file.
type File struct {
	Purposes map[string]PurposeSpec `yaml:"purposes"`
}

// PurposeSpec describes the models of one purpose.
type PurposeSpec struct {
	Model     string               `yaml:"model"`
	Theta     float64              `yaml:"theta,omitempty"`
	Cutpoints []float64            `yaml:"cutpoints,omitempty"`
	MaxCount  int                  `yaml:"max_count,omitempty"`
	Binary    tripgen.Coefficients `yaml:"binary"`
	Count     tripgen.Coefficients `yaml:"count"`
	Nests     []logit.Nest         `yaml:"nests,omitempty"`
}

// Models is a validated model file.
type Models struct {
	// Purposes in enumeration order.
	Purposes []tripgen.PurposeModel
	// Nests holds the nesting structure of purposes that declare one.
	Nests map[model.Purpose]*logit.NestTree
}

// Option configures decoding.
type Option func(*options)

type options struct {
	maxCount int
	universe []model.Mode
}

// WithMaxCount sets the walk cap used when a purpose does not set max_count.
func WithMaxCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCount = n
		}
	}
}

// WithUniverse sets the modes every nesting structure must cover.
func WithUniverse(modes []model.Mode) Option {
	return func(o *options) {
		if len(modes) > 0 {
			o.universe = modes
		}
	}
}

// Decode parses and validates a model file. Unknown keys are rejected.
func Decode(r io.Reader, opts ...Option) (*Models, error) {
	o := options{maxCount: tripgen.DefaultMaxCount, universe: model.Modes()}
	for _, opt := range opts {
		opt(&o)
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty model file", ErrInvalidModelFile)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidModelFile, err)
	}
	return f.build(o)
}

// Load reads and validates the model file at path.
func Load(path string, opts ...Option) (*Models, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	m, err := Decode(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}
	return m, nil
}

func (f *File) build(o options) (*Models, error) {
	if len(f.Purposes) == 0 {
		return nil, fmt.Errorf("%w: no purposes", ErrInvalidModelFile)
	}

	out := &Models{Nests: make(map[model.Purpose]*logit.NestTree)}
	seen := make(map[model.Purpose]string, len(f.Purposes))
	for name, spec := range f.Purposes {
		purpose, err := model.ParsePurpose(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidModelFile, err)
		}
		if prev, dup := seen[purpose]; dup {
			return nil, fmt.Errorf("%w: purpose %s given as %q and %q", ErrInvalidModelFile, purpose, prev, name)
		}
		seen[purpose] = name
		cm, err := spec.countModel(o.maxCount)
		if err != nil {
			return nil, fmt.Errorf("purpose %s: %w", purpose, err)
		}
		out.Purposes = append(out.Purposes, tripgen.PurposeModel{
			Purpose: purpose,
			Count:   cm,
			Binary:  spec.Binary,
			Counts:  spec.Count,
		})
		if len(spec.Nests) > 0 {
			tree, err := logit.NewNestTree(spec.Nests, o.universe)
			if err != nil {
				return nil, fmt.Errorf("purpose %s: %w", purpose, err)
			}
			out.Nests[purpose] = tree
		}
	}
	sort.Slice(out.Purposes, func(i, j int) bool { return out.Purposes[i].Purpose < out.Purposes[j].Purpose })
	return out, nil
}

func (s PurposeSpec) countModel(defaultMax int) (tripgen.CountModel, error) {
	maxCount := defaultMax
	if s.MaxCount > 0 {
		maxCount = s.MaxCount
	}
	switch strings.ToLower(strings.TrimSpace(s.Model)) {
	case KindNB:
		if len(s.Cutpoints) > 0 {
			return nil, fmt.Errorf("%w: cutpoints given for a negative binomial model", ErrInvalidModelFile)
		}
		m, err := tripgen.NewHurdleNB(s.Theta, tripgen.WithMaxCount(maxCount))
		if err != nil {
			return nil, err
		}
		return m, nil
	case KindPOLR:
		m, err := tripgen.NewHurdlePOLR(s.Cutpoints, tripgen.WithMaxCount(maxCount))
		if err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: unknown model %q (want %s or %s)", ErrInvalidModelFile, s.Model, KindNB, KindPOLR)
	}
}
