package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/tripsim/internal/adapters/http/api"
	app "github.com/okian/tripsim/internal/app"
	"github.com/okian/tripsim/internal/config"
	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/pkg/logger"
	"github.com/okian/tripsim/pkg/metrics"
)

const systemMetricsInterval = 10 * time.Second

type simulateFlags struct {
	logLevel     string
	logJSON      bool
	seed         uint64
	workers      int
	shards       int
	iterations   int
	staticErrors bool
	maxCount     int
	logsumScale  float64
	model        string
	shares       string
	diagnostics  string
	metricsAddr  string
	households   int
	zones        int
	regions      int
	linger       time.Duration
	jsonOut      bool
}

func newSimulateCommand() *cobra.Command {
	var f simulateFlags
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run trip generation, mode choice and calibration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context())
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return simulate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, f.linger, f.jsonOut)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fl.BoolVar(&f.logJSON, "log-json", false, "Write logs as JSON")
	fl.Uint64Var(&f.seed, "seed", 0, "Run seed")
	fl.IntVar(&f.workers, "workers", 0, "Scheduler pool size")
	fl.IntVar(&f.shards, "shards", 0, "Tasks per stage")
	fl.IntVar(&f.iterations, "iterations", 0, "Calibration iterations")
	fl.BoolVar(&f.staticErrors, "static-errors", false, "Keep one noise vector per person and purpose")
	fl.IntVar(&f.maxCount, "max-count", 0, "Cap of the trip-count walk")
	fl.Float64Var(&f.logsumScale, "logsum-scale", 0, "Scale of the reported mean logsum")
	fl.StringVar(&f.model, "model", "", "YAML model file (default: built-in)")
	fl.StringVar(&f.shares, "shares", "", "Observed-share CSV (default: built-in)")
	fl.StringVar(&f.diagnostics, "diagnostics", "", "Write calibration diagnostics CSV here")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	fl.IntVar(&f.households, "households", 0, "Synthetic households")
	fl.IntVar(&f.zones, "zones", 0, "Synthetic zones")
	fl.IntVar(&f.regions, "regions", 0, "Calibration regions")
	fl.DurationVar(&f.linger, "linger", 0, "Keep the metrics endpoint up this long after the run")
	fl.BoolVar(&f.jsonOut, "json", false, "Print the summary as JSON")
	return cmd
}

// apply copies every flag the user set onto cfg.
func (f *simulateFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set("log-json") {
		cfg.LogJSON = f.logJSON
	}
	if set("seed") {
		cfg.Seed = f.seed
	}
	if set("workers") {
		cfg.WorkerCount = f.workers
	}
	if set("shards") {
		cfg.ShardCount = f.shards
	}
	if set("iterations") {
		cfg.CalibrationIterations = f.iterations
	}
	if set("static-errors") {
		cfg.StaticErrors = f.staticErrors
	}
	if set("max-count") {
		cfg.MaxCount = f.maxCount
	}
	if set("logsum-scale") {
		cfg.LogsumScale = f.logsumScale
	}
	if set("model") {
		cfg.ModelPath = f.model
	}
	if set("shares") {
		cfg.ObservedSharesPath = f.shares
	}
	if set("diagnostics") {
		cfg.DiagnosticsPath = f.diagnostics
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if set("households") {
		cfg.Households = f.households
	}
	if set("zones") {
		cfg.Zones = f.zones
	}
	if set("regions") {
		cfg.Regions = f.regions
	}
}

func simulate(parent context.Context, stdout, stderr io.Writer, cfg *config.Config, linger time.Duration, jsonOut bool) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := logger.Init(logger.WithWriter(stderr), logger.WithJSON(cfg.LogJSON)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(parent, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := api.NewRunState()
	if cfg.MetricsAddr != "" {
		srv, err := metrics.Listen(cfg.MetricsAddr, api.NewServer(state).Register)
		if err != nil {
			return err
		}
		serveCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- srv.Serve(serveCtx) }()
		go startSystemMetricsUpdater(serveCtx)
		log.Info(ctx, "serving metrics and run status", logger.String("addr", srv.Addr()))
		defer func() {
			if linger > 0 {
				log.Info(ctx, "metrics endpoint lingering", logger.Duration("for", linger))
				select {
				case <-time.After(linger):
				case <-ctx.Done():
				}
			}
			cancel()
			if err := <-done; err != nil {
				log.Error(ctx, "metrics server failed", logger.Error(err))
			}
		}()
	}

	svc := app.New(
		app.WithLogger(log.Named("service")),
		app.WithSeed(cfg.Seed),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithShardCount(cfg.ShardCount),
		app.WithCalibrationIterations(cfg.CalibrationIterations),
		app.WithStaticErrors(cfg.StaticErrors),
		app.WithMaxCount(cfg.MaxCount),
		app.WithLogsumScale(cfg.LogsumScale),
		app.WithModelPath(cfg.ModelPath),
		app.WithObservedSharesPath(cfg.ObservedSharesPath),
		app.WithDiagnosticsPath(cfg.DiagnosticsPath),
		app.WithPopulation(cfg.Households, cfg.Zones, cfg.Regions),
	)
	state.Start()
	rep, err := svc.Run(ctx)
	if err != nil {
		state.Fail(err)
		return err
	}
	state.Finish(rep)
	if jsonOut {
		return writeJSON(stdout, rep)
	}
	return writeSummary(stdout, rep)
}

// startSystemMetricsUpdater refreshes the system gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateSystemMetrics()
		}
	}
}

func writeJSON(w io.Writer, rep *app.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(api.NewSummary(rep))
}

func writeSummary(w io.Writer, rep *app.Report) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", rep.RunID)
	fmt.Fprintf(tw, "seed\t%d\n", rep.Seed)
	fmt.Fprintf(tw, "persons\t%d\n", rep.Persons)
	for _, p := range model.Purposes() {
		if n, ok := rep.TripsByPurpose[p]; ok {
			fmt.Fprintf(tw, "trips %s\t%d\n", p, n)
		}
	}
	fmt.Fprintf(tw, "failed persons\t%d\n", rep.FailedPersons)
	fmt.Fprintf(tw, "chosen\t%d\n", rep.Chosen)
	fmt.Fprintf(tw, "infeasible\t%d\n", rep.Infeasible)
	fmt.Fprintf(tw, "dropped\t%d\n", rep.Dropped)
	fmt.Fprintf(tw, "iterations\t%d\n", rep.Iterations)
	fmt.Fprintf(tw, "max share gap\t%.4f\n", rep.MaxGap)
	fmt.Fprintf(tw, "mean logsum\t%.4f\n", rep.MeanLogsum)
	fmt.Fprintf(tw, "took\t%s\n", rep.Duration.Round(time.Millisecond))
	return tw.Flush()
}
