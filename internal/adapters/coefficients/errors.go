package coefficients

import (
	"fmt"

	"github.com/okian/tripsim/internal/domain/model"
)

// Sentinel kinds for model file errors.
var (
	// ErrInvalidModelFile is a configuration error in the model file.
	ErrInvalidModelFile = fmt.Errorf("%w: invalid model file", model.ErrConfiguration)
)
