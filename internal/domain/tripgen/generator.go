package tripgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/pkg/logger"
	"github.com/okian/tripsim/pkg/metrics"
)

// PurposeModel binds a count model to the coefficient tables of its two stages.
type PurposeModel struct {
	Purpose model.Purpose
	Count   CountModel
	Binary  Coefficients
	Counts  Coefficients
}

// Validator is implemented by predictors that can check a coefficient table
// up front.
type Validator interface {
	Validate(coef Coefficients) error
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithPredictor replaces the default LinearPredictor.
func WithPredictor(p PredictorCalculator) GeneratorOption {
	return func(g *Generator) {
		if p != nil {
			g.predictor = p
		}
	}
}

// WithLogger sets a custom logger for the generator.
func WithLogger(l logger.Logger) GeneratorOption {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// Generator samples per-purpose trip counts for persons.
type Generator struct {
	models    map[model.Purpose]PurposeModel
	predictor PredictorCalculator
	logger    logger.Logger
}

// NewGenerator validates every purpose model against the predictor and
// returns a generator. All problems are configuration errors.
func NewGenerator(models []PurposeModel, opts ...GeneratorOption) (*Generator, error) {
	g := &Generator{
		models:    make(map[model.Purpose]PurposeModel, len(models)),
		predictor: NewLinearPredictor(nil),
		logger:    logger.Get().Named("tripgen"),
	}
	for _, opt := range opts {
		opt(g)
	}

	for _, pm := range models {
		if !pm.Purpose.Valid() {
			return nil, fmt.Errorf("%w: purpose %d", ErrInvalidModel, pm.Purpose)
		}
		if _, dup := g.models[pm.Purpose]; dup {
			return nil, fmt.Errorf("%w: purpose %s defined twice", ErrInvalidModel, pm.Purpose)
		}
		if pm.Count == nil {
			return nil, fmt.Errorf("%w: purpose %s has no count model", ErrInvalidModel, pm.Purpose)
		}
		if v, ok := g.predictor.(Validator); ok {
			if err := v.Validate(pm.Binary); err != nil {
				return nil, fmt.Errorf("purpose %s binary stage: %w", pm.Purpose, err)
			}
			if err := v.Validate(pm.Counts); err != nil {
				return nil, fmt.Errorf("purpose %s count stage: %w", pm.Purpose, err)
			}
		}
		g.models[pm.Purpose] = pm
	}
	return g, nil
}

// Purposes returns the configured purposes in enumeration order.
func (g *Generator) Purposes() []model.Purpose {
	out := make([]model.Purpose, 0, len(g.models))
	for p := range g.models {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Batch is the outcome of sampling one purpose for a slice of persons.
type Batch struct {
	Purpose model.Purpose
	Results []model.TripCountResult
	Trips   int
	// Failed lists persons that received no result.
	Failed []int
}

// Generate samples a trip count for every person, in slice order, using rng.
// Per-person failures are recorded in the batch and never abort the batch.
// An unconfigured purpose is a configuration error.
func (g *Generator) Generate(ctx context.Context, rng *rand.Rand, purpose model.Purpose, persons []*model.Person) (Batch, error) {
	pm, ok := g.models[purpose]
	if !ok {
		return Batch{}, fmt.Errorf("%w: no count model for purpose %s", ErrInvalidModel, purpose)
	}

	b := Batch{Purpose: purpose, Results: make([]model.TripCountResult, 0, len(persons))}
	label := purpose.String()
	for _, p := range persons {
		n, err := g.sampleOne(rng, pm, p)
		if err != nil {
			id := personID(p)
			b.Failed = append(b.Failed, id)
			metrics.RecordCountSamplingFailure(label, failureReason(err))
			g.logger.Debug(ctx, "trip count not sampled",
				logger.Int("person", id),
				logger.String("purpose", label),
				logger.Error(err),
			)
			continue
		}
		b.Results = append(b.Results, model.TripCountResult{PersonID: p.ID, Purpose: purpose, Count: n})
		b.Trips += n
		metrics.RecordTripCounts(label, n)
	}
	return b, nil
}

func (g *Generator) sampleOne(rng *rand.Rand, pm PurposeModel, p *model.Person) (int, error) {
	if p == nil || p.Household == nil {
		return 0, ErrMissingHousehold
	}
	bu := g.predictor.Predict(p.Household, p, pm.Binary)
	cu := g.predictor.Predict(p.Household, p, pm.Counts)
	n, err := Sample(rng, pm.Count, bu, cu)
	if err != nil {
		return 0, fmt.Errorf("person %d: %w", p.ID, err)
	}
	return n, nil
}

// personID reports -1 for a nil person.
func personID(p *model.Person) int {
	if p == nil {
		return -1
	}
	return p.ID
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrCountNotConverged):
		return "not_converged"
	case errors.Is(err, ErrInvalidPredictor):
		return "invalid_predictor"
	case errors.Is(err, ErrMissingHousehold):
		return "missing_household"
	default:
		return "other"
	}
}
