package calibration

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/pkg/logger"
	"github.com/okian/tripsim/pkg/metrics"
)

// DiagnosticRow records one factor after one iteration.
type DiagnosticRow struct {
	Iteration int
	Region    model.RegionID
	Purpose   model.Purpose
	Mode      model.Mode
	Observed  float64
	Simulated float64
	Factor    float64
	Trips     int
}

// Iteration summarises one update.
type Iteration struct {
	Number int
	MaxGap float64
	Rows   []DiagnosticRow
}

// RoundFunc runs one full choice round with the current factors and returns
// the tally of resolved choices. The table must only be read.
type RoundFunc func(ctx context.Context, factors *FactorTable) (*Tally, error)

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets a custom logger for the loop.
func WithLogger(l logger.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithFactors starts from an existing table instead of the observed factor column.
func WithFactors(t *FactorTable) Option {
	return func(lp *Loop) {
		if t != nil {
			lp.factors = t
		}
	}
}

// Loop applies factor += observed - simulated for every observed key.
type Loop struct {
	observed    *ObservedShares
	factors     *FactorTable
	logger      logger.Logger
	iteration   int
	maxGap      float64
	diagnostics []DiagnosticRow
}

// NewLoop returns a loop targeting observed.
func NewLoop(observed *ObservedShares, opts ...Option) *Loop {
	lp := &Loop{
		observed: observed,
		logger:   logger.Get().Named("calibration"),
	}
	for _, opt := range opts {
		opt(lp)
	}
	if lp.factors == nil {
		lp.factors = observed.InitialFactors()
	}
	return lp
}

// Factors returns the live factor table.
func (lp *Loop) Factors() *FactorTable { return lp.factors }

// Iterations returns the number of updates applied so far.
func (lp *Loop) Iterations() int { return lp.iteration }

// MaxGap returns the largest absolute share gap of the last update.
func (lp *Loop) MaxGap() float64 { return lp.maxGap }

// Diagnostics returns every row written so far, in iteration then key order.
func (lp *Loop) Diagnostics() []DiagnosticRow { return lp.diagnostics }

// Update applies one iteration using the simulated shares in tally. A stratum
// with no trips has simulated share zero, so its factors move the full
// observed share.
func (lp *Loop) Update(ctx context.Context, tally *Tally) Iteration {
	if tally == nil {
		tally = NewTally()
	}
	lp.iteration++
	it := Iteration{Number: lp.iteration, Rows: make([]DiagnosticRow, 0, lp.observed.Len())}

	for _, k := range lp.observed.Keys() {
		obs, _ := lp.observed.Share(k)
		sim := tally.Share(k)
		gap := obs - sim
		f := lp.factors.Add(k, gap)
		it.MaxGap = math.Max(it.MaxGap, math.Abs(gap))
		it.Rows = append(it.Rows, DiagnosticRow{
			Iteration: it.Number,
			Region:    k.Region,
			Purpose:   k.Purpose,
			Mode:      k.Mode,
			Observed:  obs,
			Simulated: sim,
			Factor:    f,
			Trips:     tally.Trips(k.Stratum()),
		})
		metrics.UpdateCalibrationFactor(strconv.Itoa(int(k.Region)), k.Purpose.String(), k.Mode.String(), f)
	}

	lp.maxGap = it.MaxGap
	lp.diagnostics = append(lp.diagnostics, it.Rows...)
	metrics.RecordCalibrationIteration(it.MaxGap)
	lp.logger.Info(ctx, "calibration iteration",
		logger.Int("iteration", it.Number),
		logger.Float64("max_share_gap", it.MaxGap),
		logger.Int("trips", tally.Total()),
	)
	return it
}

// Run alternates round and Update for the given number of iterations, then
// runs one more round with the final factors and returns its tally. There is
// no convergence stop; the caller judges convergence from MaxGap. The context
// is checked before each round.
func (lp *Loop) Run(ctx context.Context, iterations int, round RoundFunc) (*Tally, error) {
	if round == nil {
		return nil, ErrNoRound
	}
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tally, err := round(ctx, lp.factors)
		if err != nil {
			return nil, fmt.Errorf("calibration round %d: %w", lp.iteration+1, err)
		}
		lp.Update(ctx, tally)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	final, err := round(ctx, lp.factors)
	if err != nil {
		return nil, fmt.Errorf("final choice round: %w", err)
	}
	return final, nil
}
