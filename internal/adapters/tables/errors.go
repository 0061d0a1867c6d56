package tables

import (
	"fmt"

	"github.com/okian/tripsim/internal/domain/model"
)

// Sentinel kinds for table errors.
var (
	// ErrMalformedTable is a configuration error: an input table cannot be parsed.
	ErrMalformedTable = fmt.Errorf("%w: malformed table", model.ErrConfiguration)
)
