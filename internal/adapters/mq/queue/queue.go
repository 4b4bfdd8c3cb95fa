// Package queue buffers accepted wormhole submissions between the HTTP
// handlers and the worker pool.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
	"github.com/ciwomuli/eve-wormhole/pkg/metrics"
)

const defaultCapacity = 10_000

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds s to the queue without blocking. It returns ErrQueueFull
	// when the queue is at capacity and ErrClosed after Close.
	Enqueue(ctx context.Context, s model.Submission) error

	// Dequeue returns a channel that receives submissions until the queue
	// is closed and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan model.Submission

	// Drain removes and returns every pending submission without blocking.
	Drain() []model.Submission

	// Len returns the number of pending submissions.
	Len() int

	// Capacity returns the maximum number of pending submissions.
	Capacity() int

	// Close stops accepting submissions. Pending ones remain dequeueable.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan model.Submission
	capacity int
	onDrop   DropHandler

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan model.Submission, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)
	return q
}

// Enqueue adds s to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: submissions travel by value through the channel
	start := time.Now()
	defer func() {
		metrics.RecordQueueProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.recordError("closed")
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		q.recordError("context_cancelled")
		return fmt.Errorf("enqueue: %w", err)
	}

	select {
	case q.items <- s:
		metrics.RecordQueueEnqueue()
		q.updateGauges()
		return nil
	default:
		q.recordError("queue_full")
		return ErrQueueFull
	}
}

func (q *InMemoryQueue) recordError(kind string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", kind)
}

func (q *InMemoryQueue) updateGauges() {
	n := len(q.items)
	metrics.UpdateQueueSize(n)
	metrics.UpdateQueueUtilization(float64(n) / float64(q.capacity))
}

// Dequeue returns a channel of pending submissions. Several consumers may
// call Dequeue; each submission is delivered to exactly one of them. A
// submission taken from the queue when ctx ends goes to the drop handler.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan model.Submission {
	out := make(chan model.Submission)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-q.items:
				if !ok {
					return
				}
				metrics.RecordQueueDequeue()
				q.updateGauges()
				select {
				case out <- s:
				case <-ctx.Done():
					q.drop(s)
					return
				}
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) drop(s model.Submission) { //nolint:gocritic // hugeParam: submissions travel by value through the channel
	metrics.RecordErrorByComponent("queue", "dropped")
	if q.onDrop != nil {
		q.onDrop(s)
	}
}

// Drain removes and returns the pending submissions. It works on a closed
// queue too, so callers can collect what the workers left behind.
func (q *InMemoryQueue) Drain() []model.Submission {
	var out []model.Submission
	for {
		select {
		case s, ok := <-q.items:
			if !ok {
				q.updateGauges()
				return out
			}
			out = append(out, s)
		default:
			q.updateGauges()
			return out
		}
	}
}

// Len returns the number of pending submissions.
func (q *InMemoryQueue) Len() int {
	return len(q.items)
}

// Capacity returns the maximum number of pending submissions.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops accepting submissions. Calling it twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed reports whether Close was called.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
