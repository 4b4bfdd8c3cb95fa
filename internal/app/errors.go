package service

import (
	"errors"
	"fmt"

	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
)

// Sentinel errors returned by the service.
var (
	ErrNotStarted   = fmt.Errorf("%w: service not started", types.ErrUnavailable)
	ErrUnknownStore = errors.New("unknown store driver")
	ErrNoSubmitter  = errors.New("submitter id is required")
)
