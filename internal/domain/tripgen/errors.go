package tripgen

import (
	"errors"
	"fmt"

	"github.com/okian/tripsim/internal/domain/model"
)

// Sentinel kinds for trip generation errors.
var (
	// ErrInvalidModel is a configuration error in a count model definition.
	ErrInvalidModel = fmt.Errorf("%w: invalid count model", model.ErrConfiguration)
	// ErrMissingCoefficient is a configuration error: a required coefficient is absent.
	ErrMissingCoefficient = fmt.Errorf("%w: missing coefficient", model.ErrConfiguration)
	// ErrUnknownCoefficient is a configuration error: a coefficient names no attribute.
	ErrUnknownCoefficient = fmt.Errorf("%w: unknown coefficient", model.ErrConfiguration)
	// ErrCountNotConverged means the inverse-CDF walk hit its cap.
	ErrCountNotConverged = errors.New("count sampling did not converge")
	// ErrInvalidPredictor means a linear predictor evaluated to NaN.
	ErrInvalidPredictor = errors.New("invalid linear predictor")
	// ErrMissingHousehold means a person has no household to read attributes from.
	ErrMissingHousehold = errors.New("person without household")
)
