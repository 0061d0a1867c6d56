package metrics

import "errors"

// ErrServeFailed wraps bind, serve and shutdown failures of the /metrics and
// run-status listener.
var ErrServeFailed = errors.New("metrics listener failed")
