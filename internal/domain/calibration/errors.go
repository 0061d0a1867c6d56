package calibration

import (
	"errors"
	"fmt"

	"github.com/okian/tripsim/internal/domain/model"
)

// Sentinel kinds for calibration errors.
var (
	// ErrInvalidObservation is a configuration error in the observed-share table.
	ErrInvalidObservation = fmt.Errorf("%w: invalid observed share", model.ErrConfiguration)
	// ErrDuplicateObservation is a configuration error: a key appears twice.
	ErrDuplicateObservation = fmt.Errorf("%w: duplicate observed share", model.ErrConfiguration)
	// ErrNoRound means Run was called without a round function.
	ErrNoRound = errors.New("calibration round function is nil")
)
