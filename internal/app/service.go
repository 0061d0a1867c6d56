// Package service wires the simulation stages together: trip generation,
// mode choice and calibration, each run as a deterministic fork-join round on
// the scheduler pool.
package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tripsim/internal/adapters/coefficients"
	"github.com/okian/tripsim/internal/adapters/scheduler"
	"github.com/okian/tripsim/internal/adapters/tables"
	"github.com/okian/tripsim/internal/domain/calibration"
	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/internal/domain/modechoice"
	"github.com/okian/tripsim/internal/domain/tripgen"
	"github.com/okian/tripsim/internal/synthetic"
	"github.com/okian/tripsim/pkg/logger"
	"github.com/okian/tripsim/pkg/metrics"
)

// Stage names and generator streams. Each calibration round uses its own
// stream above streamChoice.
const (
	stageTripGen    = "tripgen"
	stageModeChoice = "modechoice"
	stageLogsum     = "logsum"

	streamTripGen = 0
	streamLogsum  = 1
	streamChoice  = 2
)

// Defaults.
const (
	DefaultShardCount  = 16
	DefaultIterations  = 5
	DefaultLogsumScale = 1.0
	DefaultSeed        = 42
)

// Service runs one simulation per call to Run.
type Service struct {
	logger logger.Logger

	workerCount  int
	shardCount   int
	seed         uint64
	iterations   int
	staticErrors bool
	maxCount     int
	logsumScale  float64

	modelPath       string
	observedPath    string
	diagnosticsPath string

	households int
	zones      int
	regions    int
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkerCount sets the scheduler pool size. It never changes results.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithShardCount sets how many tasks each stage is split into.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithSeed sets the run seed.
func WithSeed(seed uint64) Option {
	return func(s *Service) { s.seed = seed }
}

// WithCalibrationIterations sets the number of factor updates. Zero runs a
// single uncalibrated choice round.
func WithCalibrationIterations(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.iterations = n
		}
	}
}

// WithStaticErrors makes every person keep one noise vector per purpose
// across trips and calibration rounds.
func WithStaticErrors(enabled bool) Option {
	return func(s *Service) { s.staticErrors = enabled }
}

// WithMaxCount caps the inverse-CDF walk of purposes that do not set their own.
func WithMaxCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCount = n
		}
	}
}

// WithLogsumScale sets the scale of the reported mean logsum.
func WithLogsumScale(mu float64) Option {
	return func(s *Service) {
		if mu > 0 {
			s.logsumScale = mu
		}
	}
}

// WithModelPath reads count models and nests from a YAML file instead of the
// built-in ones.
func WithModelPath(path string) Option {
	return func(s *Service) { s.modelPath = path }
}

// WithObservedSharesPath reads observed shares from a CSV file instead of the
// built-in ones.
func WithObservedSharesPath(path string) Option {
	return func(s *Service) { s.observedPath = path }
}

// WithDiagnosticsPath writes the calibration diagnostics to a CSV file.
func WithDiagnosticsPath(path string) Option {
	return func(s *Service) { s.diagnosticsPath = path }
}

// WithPopulation sizes the synthetic population. Non-positive values keep
// the defaults.
func WithPopulation(households, zones, regions int) Option {
	return func(s *Service) {
		if households > 0 {
			s.households = households
		}
		if zones > 0 {
			s.zones = zones
		}
		if regions > 0 {
			s.regions = regions
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		shardCount:  DefaultShardCount,
		seed:        DefaultSeed,
		iterations:  DefaultIterations,
		maxCount:    tripgen.DefaultMaxCount,
		logsumScale: DefaultLogsumScale,
		households:  synthetic.DefaultHouseholds,
		zones:       synthetic.DefaultZones,
		regions:     synthetic.DefaultRegions,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// inputs are the read-only collaborators of one run.
type inputs struct {
	models   *coefficients.Models
	observed *calibration.ObservedShares
	pop      *synthetic.Population
	skims    *synthetic.Skims
}

// Run executes one simulation and returns its summary. Configuration errors
// surface before any parallel work starts.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	rep := &Report{RunID: uuid.NewString(), Seed: s.seed}
	log := s.logger.With(logger.String("run_id", rep.RunID))

	err := s.run(ctx, log, rep)
	rep.Duration = time.Since(start)
	metrics.UpdateSystemMetrics()
	if err != nil {
		metrics.RecordRun("failed")
		log.Error(ctx, "simulation failed", logger.Error(err), logger.Duration("took", rep.Duration))
		return nil, err
	}
	metrics.RecordRun("ok")
	rep.log(ctx, log)
	return rep, nil
}

func (s *Service) run(ctx context.Context, log logger.Logger, rep *Report) error {
	in, err := s.load()
	if err != nil {
		return err
	}
	log.Info(ctx, "simulation starting",
		logger.Uint64("seed", s.seed),
		logger.Int("workers", s.workerCount),
		logger.Int("shards", s.shardCount),
		logger.Int("persons", len(in.pop.Persons)),
		logger.Int("observed_shares", in.observed.Len()),
		logger.Bool("static_errors", s.staticErrors),
	)
	rep.Persons = len(in.pop.Persons)

	gen, err := tripgen.NewGenerator(in.models.Purposes, tripgen.WithLogger(log.Named("tripgen")))
	if err != nil {
		return err
	}
	engine, err := s.engine(log, in, gen.Purposes())
	if err != nil {
		return err
	}
	pool := scheduler.New(
		scheduler.WithSize(s.workerCount),
		scheduler.WithSeed(s.seed),
		scheduler.WithLogger(log),
	)

	results, err := s.generate(ctx, pool, gen, in.pop, rep)
	if err != nil {
		return err
	}
	trips := in.pop.Trips(s.seed, results)
	rep.Trips = len(trips)

	loop := calibration.NewLoop(in.observed, calibration.WithLogger(log.Named("calibration")))
	shards := scheduler.Shards(trips, s.shardCount)
	round := 0
	var last modechoice.Result
	final, err := loop.Run(ctx, s.iterations, func(ctx context.Context, factors *calibration.FactorTable) (*calibration.Tally, error) {
		stage := scheduler.Stage{Name: stageModeChoice, Stream: streamChoice + uint64(round)}
		round++
		res, err := s.choose(ctx, pool, stage, engine, shards, factors)
		if err != nil {
			return nil, err
		}
		last = res
		return res.Tally, nil
	})
	if err != nil {
		return err
	}

	rep.Tally = final
	rep.Chosen = last.Resolved
	rep.Infeasible = last.Infeasible
	rep.Dropped = last.Dropped
	rep.Iterations = loop.Iterations()
	rep.MaxGap = loop.MaxGap()
	rep.Diagnostics = loop.Diagnostics()

	rep.MeanLogsum, err = s.meanLogsum(ctx, pool, engine, shards, loop.Factors())
	if err != nil {
		return err
	}

	if s.diagnosticsPath != "" {
		if err := tables.SaveDiagnostics(s.diagnosticsPath, rep.Diagnostics); err != nil {
			return err
		}
		log.Info(ctx, "diagnostics written",
			logger.String("path", s.diagnosticsPath),
			logger.Int("rows", len(rep.Diagnostics)),
		)
	}
	return nil
}

func (s *Service) load() (*inputs, error) {
	var (
		in  inputs
		err error
	)
	if s.modelPath != "" {
		in.models, err = coefficients.Load(s.modelPath, coefficients.WithMaxCount(s.maxCount))
	} else {
		in.models, err = synthetic.DefaultModels(coefficients.WithMaxCount(s.maxCount))
	}
	if err != nil {
		return nil, err
	}

	if s.observedPath != "" {
		in.observed, err = tables.LoadObservedShares(s.observedPath)
	} else {
		in.observed, err = calibration.NewObservedShares(synthetic.ObservedShares(s.regions))
	}
	if err != nil {
		return nil, err
	}

	in.pop, err = synthetic.Generate(s.seed,
		synthetic.WithHouseholds(s.households),
		synthetic.WithZones(s.zones),
		synthetic.WithRegions(s.regions),
	)
	if err != nil {
		return nil, err
	}
	in.skims = synthetic.NewSkims(in.pop.Zones())
	return &in, nil
}

func (s *Service) engine(log logger.Logger, in *inputs, purposes []model.Purpose) (*modechoice.Engine, error) {
	opts := []modechoice.Option{
		modechoice.WithRequiredPurposes(purposes...),
		modechoice.WithLogger(log.Named("modechoice")),
	}
	for purpose, tree := range in.models.Nests {
		opts = append(opts, modechoice.WithNests(purpose, tree))
	}
	if s.staticErrors {
		opts = append(opts, modechoice.WithStaticErrors(s.seed))
	}
	return modechoice.NewEngine(synthetic.Calculators(in.pop), in.skims, in.skims, in.pop, opts...)
}

// generate samples trip counts for every purpose and person shard. Results
// come back purpose by purpose, shard by shard.
func (s *Service) generate(ctx context.Context, pool *scheduler.Pool, gen *tripgen.Generator,
	pop *synthetic.Population, rep *Report,
) ([]model.TripCountResult, error) {
	shards := scheduler.Shards(pop.Persons, s.shardCount)
	var tasks []scheduler.Task[tripgen.Batch]
	for _, purpose := range gen.Purposes() {
		for _, persons := range shards {
			tasks = append(tasks, func(ctx context.Context, rng *rand.Rand) (tripgen.Batch, error) {
				return gen.Generate(ctx, rng, purpose, persons)
			})
		}
	}

	batches, err := scheduler.Run(ctx, pool, scheduler.Stage{Name: stageTripGen, Stream: streamTripGen}, tasks)
	if err != nil {
		return nil, err
	}

	rep.TripsByPurpose = make(map[model.Purpose]int)
	var results []model.TripCountResult
	for _, b := range batches {
		results = append(results, b.Results...)
		rep.TripsByPurpose[b.Purpose] += b.Trips
		rep.FailedPersons += len(b.Failed)
	}
	rep.Results = results
	return results, nil
}

func (s *Service) choose(ctx context.Context, pool *scheduler.Pool, stage scheduler.Stage,
	engine *modechoice.Engine, shards [][]*model.Trip, factors *calibration.FactorTable,
) (modechoice.Result, error) {
	tasks := make([]scheduler.Task[modechoice.Result], len(shards))
	for i, trips := range shards {
		tasks[i] = func(ctx context.Context, rng *rand.Rand) (modechoice.Result, error) {
			return engine.Choose(ctx, rng, trips, factors)
		}
	}
	parts, err := scheduler.Run(ctx, pool, stage, tasks)
	if err != nil {
		return modechoice.Result{}, err
	}
	total := modechoice.Result{Tally: calibration.NewTally()}
	for _, p := range parts {
		total.Merge(p)
	}
	return total, nil
}

type logsumPart struct {
	sum   float64
	count int
}

// meanLogsum averages the expected maximum utility over resolved trips.
func (s *Service) meanLogsum(ctx context.Context, pool *scheduler.Pool, engine *modechoice.Engine,
	shards [][]*model.Trip, factors *calibration.FactorTable,
) (float64, error) {
	tasks := make([]scheduler.Task[logsumPart], len(shards))
	for i, trips := range shards {
		tasks[i] = func(_ context.Context, _ *rand.Rand) (logsumPart, error) {
			var part logsumPart
			for _, t := range trips {
				if t.Mode == model.ModeNone {
					continue
				}
				v, err := engine.Logsum(t, factors, s.logsumScale)
				if err != nil {
					return part, fmt.Errorf("trip %d: %w", t.ID, err)
				}
				part.sum += v
				part.count++
			}
			return part, nil
		}
	}
	parts, err := scheduler.Run(ctx, pool, scheduler.Stage{Name: stageLogsum, Stream: streamLogsum}, tasks)
	if err != nil {
		return 0, err
	}
	var total logsumPart
	for _, p := range parts {
		total.sum += p.sum
		total.count += p.count
	}
	if total.count == 0 {
		return 0, nil
	}
	return total.sum / float64(total.count), nil
}
