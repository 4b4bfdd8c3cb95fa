package cli

import "errors"

// Error constants.
var (
	ErrUsage        = errors.New("invalid usage")
	ErrVerification = errors.New("seed verification failed")
)
