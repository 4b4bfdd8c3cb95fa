package worker

import (
	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// FailureHandler is called for every submission a worker could not store.
type FailureHandler func(s model.Submission, err error)

// WithFailureHandler registers fn to be told about failed submissions.
func WithFailureHandler(fn FailureHandler) Option {
	return func(w *InMemoryWorker) {
		w.onFailure = fn
	}
}
