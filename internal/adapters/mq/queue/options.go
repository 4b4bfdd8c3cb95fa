package queue

import "github.com/ciwomuli/eve-wormhole/internal/domain/model"

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum number of pending submissions.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// DropHandler is told about a submission Dequeue took from the queue but
// could not hand to a consumer because its context ended first.
type DropHandler func(s model.Submission)

// WithDropHandler registers fn for submissions dropped by Dequeue.
func WithDropHandler(fn DropHandler) Option {
	return func(q *InMemoryQueue) {
		q.onDrop = fn
	}
}
