// Package scheduler runs fork-join stages on a fixed-size pool. Every task gets
// its own generator derived from the run seed and its index, so results do not
// depend on the pool size or on scheduling order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/tripsim/pkg/logger"
	"github.com/okian/tripsim/pkg/metrics"
)

// streamStride spreads stage streams across the PCG seed space.
const streamStride = 0x9e3779b97f4a7c15

// Task is one unit of a stage. rng belongs to the task alone.
type Task[T any] func(ctx context.Context, rng *rand.Rand) (T, error)

// Stage names a round of tasks. Stream separates the generators of different
// stages (and of different calibration iterations) under the same run seed.
type Stage struct {
	Name   string
	Stream uint64
}

// Pool bounds how many tasks of a stage run at once.
type Pool struct {
	size   int
	seed   uint64
	name   string
	logger logger.Logger
}

// New creates a pool.
func New(opts ...Option) *Pool {
	p := &Pool{
		size:   runtime.NumCPU(),
		name:   "scheduler",
		logger: logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.name != "scheduler" {
		p.logger = p.logger.Named(p.name)
	}
	metrics.UpdateSchedulerPoolSize(p.size)
	return p
}

// Size returns the pool size.
func (p *Pool) Size() int { return p.size }

// Seed returns the run seed.
func (p *Pool) Seed() uint64 { return p.seed }

// RNG returns the generator task index of stage receives.
func (p *Pool) RNG(stage Stage, index int) *rand.Rand {
	return rand.New(rand.NewPCG(p.seed+stage.Stream*streamStride, uint64(index)))
}

// Run executes every task and returns their results in task order once all of
// them have finished. Task errors and recovered panics do not stop the other
// tasks; they are joined and returned after the barrier together with the
// results of the tasks that succeeded. The context is only checked before a
// task is dispatched.
func Run[T any](ctx context.Context, p *Pool, stage Stage, tasks []Task[T]) ([]T, error) {
	start := time.Now()
	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))

	var g errgroup.Group
	g.SetLimit(p.size)
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs[i] = fmt.Errorf("%s task %d: %w: %w", stage.Name, i, ErrNotDispatched, err)
			continue
		}
		rng := p.RNG(stage, i)
		g.Go(func() error {
			results[i], errs[i] = runTask(ctx, p, stage, i, task, rng)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	elapsed := time.Since(start)
	metrics.RecordStageDuration(stage.Name, elapsed.Seconds())
	p.logger.Debug(ctx, "stage finished",
		logger.String("stage", stage.Name),
		logger.Int("tasks", len(tasks)),
		logger.Int("failed", failed),
		logger.Duration("took", elapsed),
	)
	return results, errors.Join(errs...)
}

func runTask[T any](ctx context.Context, p *Pool, stage Stage, i int, task Task[T], rng *rand.Rand) (res T, err error) {
	metrics.RecordTaskStarted()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s task %d: %w: %v", stage.Name, i, ErrTaskPanic, r)
		}
		metrics.RecordTaskFinished(stage.Name, time.Since(start).Seconds())
		if err != nil {
			metrics.RecordTaskError(stage.Name)
			p.logger.Error(ctx, "task failed",
				logger.String("stage", stage.Name),
				logger.Int("task", i),
				logger.Error(err),
			)
		}
	}()
	res, err = task(ctx, rng)
	if err != nil {
		err = fmt.Errorf("%s task %d: %w", stage.Name, i, err)
	}
	return res, err
}
