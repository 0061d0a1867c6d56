package logit

import (
	"errors"
	"fmt"

	"github.com/okian/tripsim/internal/domain/model"
)

// Sentinel kinds for logit errors.
var (
	// ErrInvalidNest is a configuration error: the nest definition is malformed.
	ErrInvalidNest = fmt.Errorf("%w: invalid nest structure", model.ErrConfiguration)
	// ErrNoAvailableAlternative means no alternative carries a finite utility.
	ErrNoAvailableAlternative = errors.New("no available alternative")
	// ErrUncoveredAlternative means a utility key is not owned by the nest tree.
	ErrUncoveredAlternative = errors.New("alternative not covered by nest tree")
	// ErrInvalidScale means the logsum scale is not a positive finite number.
	ErrInvalidScale = errors.New("invalid logsum scale")
)
