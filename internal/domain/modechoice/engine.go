package modechoice

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/okian/tripsim/internal/domain/calibration"
	"github.com/okian/tripsim/internal/domain/choice"
	"github.com/okian/tripsim/internal/domain/errorterm"
	"github.com/okian/tripsim/internal/domain/logit"
	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/pkg/logger"
	"github.com/okian/tripsim/pkg/metrics"
)

// Outcome classifies what happened to a trip.
type Outcome int

const (
	// Resolved trips received a mode.
	Resolved Outcome = iota
	// Infeasible trips had no available mode; their mode is ModeNone.
	Infeasible
	// Dropped trips could not be located or mapped to a region.
	Dropped
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Infeasible:
		return "infeasible"
	case Dropped:
		return "dropped"
	}
	return "unknown"
}

// Engine resolves trip modes. It holds only read-only state after
// construction and is safe for concurrent use by tasks that each own their
// generator and their trips.
type Engine struct {
	calculators map[model.Purpose]UtilityCalculator
	trees       map[model.Purpose]*logit.NestTree
	samplers    map[model.Purpose]*errorterm.Sampler
	statics     map[model.Purpose]*errorterm.StaticNoise
	tt          TravelTimes
	dist        Distances
	regions     RegionLookup

	static     bool
	staticSeed uint64
	required   []model.Purpose
	logger     logger.Logger
}

// NewEngine builds an engine. A required purpose without a calculator, or a
// missing skim or region dependency, is a configuration error.
func NewEngine(calculators map[model.Purpose]UtilityCalculator, tt TravelTimes, dist Distances, regions RegionLookup, opts ...Option) (*Engine, error) {
	e := &Engine{
		calculators: make(map[model.Purpose]UtilityCalculator, len(calculators)),
		trees:       make(map[model.Purpose]*logit.NestTree),
		samplers:    make(map[model.Purpose]*errorterm.Sampler),
		statics:     make(map[model.Purpose]*errorterm.StaticNoise),
		tt:          tt,
		dist:        dist,
		regions:     regions,
		logger:      logger.Get().Named("modechoice"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if tt == nil || dist == nil {
		return nil, fmt.Errorf("%w: travel times and distances are required", ErrMissingDependency)
	}
	if regions == nil {
		return nil, fmt.Errorf("%w: region lookup is required", ErrMissingDependency)
	}
	for p, c := range calculators {
		if c != nil {
			e.calculators[p] = c
		}
	}
	for _, p := range e.required {
		if _, ok := e.calculators[p]; !ok {
			return nil, fmt.Errorf("%w: purpose %s", ErrMissingCalculator, p)
		}
	}

	for p := range e.calculators {
		s := errorterm.NewNestedSampler(e.trees[p])
		e.samplers[p] = s
		if e.static {
			e.statics[p] = errorterm.NewStaticNoise(s, e.staticSeed, uint64(p))
		}
	}
	return e, nil
}

// Supports reports whether purpose has a calculator.
func (e *Engine) Supports(purpose model.Purpose) bool {
	_, ok := e.calculators[purpose]
	return ok
}

// Result aggregates one batch of trips.
type Result struct {
	Tally      *calibration.Tally
	Resolved   int
	Infeasible int
	Dropped    int
}

// Merge adds other into r.
func (r *Result) Merge(other Result) {
	if r.Tally == nil {
		r.Tally = calibration.NewTally()
	}
	r.Tally.Merge(other.Tally)
	r.Resolved += other.Resolved
	r.Infeasible += other.Infeasible
	r.Dropped += other.Dropped
}

// Choose resolves every trip in order with rng and writes the mode back onto
// the trip. factors may be nil. Trips of a purpose without a calculator are a
// configuration error; everything else is counted in the result.
func (e *Engine) Choose(ctx context.Context, rng *rand.Rand, trips []*model.Trip, factors *calibration.FactorTable) (Result, error) {
	res := Result{Tally: calibration.NewTally()}
	for _, t := range trips {
		region, outcome, err := e.ChooseTrip(rng, t, factors)
		if err != nil {
			return res, err
		}
		label := t.Purpose.String()
		switch outcome {
		case Resolved:
			res.Resolved++
			res.Tally.Add(region, t.Purpose, t.Mode)
			metrics.RecordChoiceResolved(label, t.Mode.String())
		case Infeasible:
			res.Infeasible++
			metrics.RecordChoiceInfeasible(label)
			e.logger.Debug(ctx, "trip infeasible",
				logger.Int("trip", t.ID),
				logger.String("purpose", label),
			)
		case Dropped:
			res.Dropped++
			metrics.RecordTripDropped(label)
			e.logger.Debug(ctx, "trip dropped",
				logger.Int("trip", t.ID),
				logger.Int("origin", int(t.Origin)),
				logger.Int("destination", int(t.Destination)),
			)
		}
	}
	return res, nil
}

// ChooseTrip resolves a single trip and returns the region it was counted in.
func (e *Engine) ChooseTrip(rng *rand.Rand, t *model.Trip, factors *calibration.FactorTable) (model.RegionID, Outcome, error) {
	t.Mode = model.ModeNone
	u, region, outcome, err := e.utilities(t, factors)
	if err != nil || outcome != Resolved {
		return region, outcome, err
	}

	var noise model.Noise
	if st, ok := e.statics[t.Purpose]; ok {
		noise = st.For(t.Person.ID)
	} else {
		noise = e.samplers[t.Purpose].Sample(rng)
	}

	mode, ok := choice.Resolve(u, noise)
	if !ok {
		return region, Infeasible, nil
	}
	t.Mode = mode
	return region, Resolved, nil
}

// Probabilities returns the logit probabilities of a trip under its purpose's
// nesting structure, with calibration factors applied.
func (e *Engine) Probabilities(t *model.Trip, factors *calibration.FactorTable) (logit.Probabilities, error) {
	u, _, outcome, err := e.utilities(t, factors)
	if err != nil {
		return nil, err
	}
	if outcome == Dropped {
		return nil, fmt.Errorf("trip %d is not located", t.ID)
	}
	return logit.Nested(u, e.trees[t.Purpose])
}

// Logsum returns the expected maximum utility of a trip at scale mu.
func (e *Engine) Logsum(t *model.Trip, factors *calibration.FactorTable, mu float64) (float64, error) {
	u, _, outcome, err := e.utilities(t, factors)
	if err != nil {
		return 0, err
	}
	if outcome == Dropped {
		return 0, fmt.Errorf("trip %d is not located", t.ID)
	}
	return logit.NestedLogsum(u, e.trees[t.Purpose], mu)
}

// utilities evaluates the calculator, adds calibration factors and maps NaN
// to -Inf. outcome is Dropped for unlocated trips and Infeasible when no mode
// is available.
func (e *Engine) utilities(t *model.Trip, factors *calibration.FactorTable) (model.Utilities, model.RegionID, Outcome, error) {
	calc, ok := e.calculators[t.Purpose]
	if !ok {
		return nil, 0, Dropped, fmt.Errorf("%w: purpose %s", ErrMissingCalculator, t.Purpose)
	}
	if !t.Located() || t.Person == nil || t.Person.Household == nil {
		return nil, 0, Dropped, nil
	}
	region, ok := e.regions.Region(t.Origin)
	if !ok {
		return nil, 0, Dropped, nil
	}

	u := calc.Utilities(t.Purpose, t.Person.Household, t.Person, t.Origin, t.Destination, e.tt, e.dist, t.PeakHour)
	if factors != nil {
		factors.Apply(region, t.Purpose, u)
	}
	u.Normalize()

	for m := range u {
		if u.Available(m) {
			return u, region, Resolved, nil
		}
	}
	return u, region, Infeasible, nil
}
