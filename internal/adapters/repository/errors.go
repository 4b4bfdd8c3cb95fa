package repository

import "errors"

// Sentinel errors returned by stores.
var (
	ErrEmptyID        = errors.New("wormhole id is empty")
	ErrEmptySubmitter = errors.New("submitter id is empty")
	ErrClosed         = errors.New("store closed")
)
