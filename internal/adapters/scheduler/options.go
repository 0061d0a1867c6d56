package scheduler

import (
	"github.com/okian/tripsim/pkg/logger"
)

// Option applies a configuration option to the Pool.
type Option func(*Pool)

// WithSize sets the number of tasks that may run at once. Values below one
// select runtime.NumCPU().
func WithSize(size int) Option {
	return func(p *Pool) {
		if size > 0 {
			p.size = size
		}
	}
}

// WithSeed sets the run seed every task generator is derived from.
func WithSeed(seed uint64) Option {
	return func(p *Pool) {
		p.seed = seed
	}
}

// WithName sets the pool name for identification and logging.
func WithName(name string) Option {
	return func(p *Pool) {
		if name != "" {
			p.name = name
		}
	}
}

// WithLogger sets a custom logger for the pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}
