package scheduler

import (
	"errors"
)

// Sentinel kinds for scheduler errors.
var (
	// ErrTaskPanic wraps a panic recovered from a task.
	ErrTaskPanic = errors.New("task panicked")
	// ErrNotDispatched marks tasks skipped because the context ended before dispatch.
	ErrNotDispatched = errors.New("task not dispatched")
)
