package modechoice

import (
	"fmt"

	"github.com/okian/tripsim/internal/domain/model"
)

// Sentinel kinds for mode choice errors.
var (
	// ErrMissingCalculator is a configuration error: a purpose has no utility calculator.
	ErrMissingCalculator = fmt.Errorf("%w: no utility calculator registered", model.ErrConfiguration)
	// ErrMissingDependency is a configuration error: skims or region lookup were not supplied.
	ErrMissingDependency = fmt.Errorf("%w: missing mode choice dependency", model.ErrConfiguration)
)
