package modechoice

import (
	"github.com/okian/tripsim/internal/domain/logit"
	"github.com/okian/tripsim/internal/domain/model"
	"github.com/okian/tripsim/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithNests sets the nesting structure of one purpose. Purposes without a
// tree draw independent Gumbel noise.
func WithNests(purpose model.Purpose, tree *logit.NestTree) Option {
	return func(e *Engine) {
		if tree != nil {
			e.trees[purpose] = tree
		}
	}
}

// WithStaticErrors makes every person keep one noise vector per purpose for
// the whole run, derived from seed.
func WithStaticErrors(seed uint64) Option {
	return func(e *Engine) {
		e.static = true
		e.staticSeed = seed
	}
}

// WithRequiredPurposes lists purposes that must have a calculator.
func WithRequiredPurposes(purposes ...model.Purpose) Option {
	return func(e *Engine) {
		e.required = append(e.required, purposes...)
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}
