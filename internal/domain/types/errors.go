package types

import "errors"

// Error kinds shared by the service and the HTTP layer.
var (
	// ErrBackpressure means the submission pipeline is full; retry later.
	ErrBackpressure = errors.New("backpressure")
	// ErrUnavailable means the pipeline is not running.
	ErrUnavailable = errors.New("service unavailable")
)
