package service

import (
	"context"
	"time"

	"github.com/okian/tripsim/internal/domain/calibration"
	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/pkg/logger"
)

// Report summarises one run.
type Report struct {
	RunID    string
	Seed     uint64
	Duration time.Duration

	Persons int
	// Results holds every sampled trip count, purpose by purpose.
	Results        []model.TripCountResult
	TripsByPurpose map[model.Purpose]int
	// FailedPersons counts (person, purpose) pairs without a count.
	FailedPersons int

	Trips      int
	Chosen     int
	Infeasible int
	Dropped    int
	// Tally holds the resolved choices of the final round.
	Tally *calibration.Tally

	Iterations  int
	MaxGap      float64
	Diagnostics []calibration.DiagnosticRow
	MeanLogsum  float64
}

func (r *Report) log(ctx context.Context, l logger.Logger) {
	fields := []logger.Field{
		logger.Int("persons", r.Persons),
		logger.Int("trips", r.Trips),
		logger.Int("failed_persons", r.FailedPersons),
		logger.Int("chosen", r.Chosen),
		logger.Int("infeasible", r.Infeasible),
		logger.Int("dropped", r.Dropped),
		logger.Int("iterations", r.Iterations),
		logger.Float64("max_share_gap", r.MaxGap),
		logger.Float64("mean_logsum", r.MeanLogsum),
		logger.Duration("took", r.Duration),
	}
	for _, p := range model.Purposes() {
		if n, ok := r.TripsByPurpose[p]; ok {
			fields = append(fields, logger.Int("trips_"+p.String(), n))
		}
	}
	l.Info(ctx, "simulation finished", fields...)
}
