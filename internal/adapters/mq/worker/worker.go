// Package worker turns queued submissions into stored wormholes: each one
// gets a lifetime estimate and is then saved.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/domain/lifetime"
	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
	"github.com/ciwomuli/eve-wormhole/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	metricsUpdateInterval   = 5 * time.Second
)

// Estimator computes the expiry of a submission.
type Estimator interface {
	Estimate(ctx context.Context, in lifetime.Input) (lifetime.Result, error)
}

// Saver persists enriched wormholes.
type Saver interface {
	Save(ctx context.Context, w model.Wormhole) error
}

// Queue defines how workers receive submissions.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Submission
}

// Worker processes submissions until its queue is drained.
type Worker interface {
	// Run processes submissions until the queue closes or ctx is done.
	Run(ctx context.Context)

	// Done is closed once Run has returned.
	Done() <-chan struct{}
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	estimator Estimator
	saver     Saver
	name      string
	onFailure FailureHandler
	processed *atomic.Int64

	done   chan struct{}
	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, est Estimator, saver Saver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		estimator: est,
		saver:     saver,
		name:      "worker",
		processed: new(atomic.Int64),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-items:
			if !ok {
				return
			}
			if err := w.process(ctx, s); err != nil {
				w.logger.Error(ctx, "error processing submission", logger.Error(err))
				if w.onFailure != nil {
					w.onFailure(s, err)
				}
			}
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, s model.Submission) error { //nolint:gocritic // hugeParam: submissions travel by value through the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	estStart := time.Now()
	res, err := w.estimator.Estimate(ctx, lifetime.Input{Type: s.Type, Life: s.Life, SubmittedAt: s.SubmittedAt})
	metrics.RecordLifetimeLatency(float64(time.Since(estStart).Milliseconds()))
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "estimate_error")
		metrics.RecordErrorByType("estimate_error", "high")
		return fmt.Errorf("estimate lifetime of %s: %w", s.ID, err)
	}

	if err := w.saver.Save(ctx, model.Wormhole{Submission: s, ExpiresAt: res.ExpiresAt}); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordStoreError()
		metrics.RecordErrorByComponent("worker", "store_error")
		metrics.RecordErrorByType("store_error", "high")
		return fmt.Errorf("save %s: %w", s.ID, err)
	}

	metrics.RecordWormholeStored()
	w.processed.Add(1)
	w.logger.Debug(ctx, "wormhole stored",
		logger.String("id", s.ID),
		logger.String("signature", s.Signature),
		logger.Duration("lifetime", res.Lifetime),
	)
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processed atomic.Int64

	mu      sync.Mutex
	cancel  context.CancelFunc
	started bool

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. Values < 1 default to
// twice the number of CPUs.
func NewPool(workerCount int, q Queue, est Estimator, saver Saver, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		w := NewInMemoryWorker(q, est, saver, wopts...)
		w.processed = &p.processed
		p.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Processed returns how many submissions were stored since the pool started.
func (p *Pool) Processed() int64 {
	return p.processed.Load()
}

// Start launches every worker. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.started = true

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for _, w := range p.workers {
		go w.Run(runCtx)
	}
	go p.reportThroughput(runCtx)
}

func (p *Pool) reportThroughput(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	last := p.processed.Load()
	lastAt := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cur := p.processed.Load()
			if secs := now.Sub(lastAt).Seconds(); secs > 0 {
				metrics.UpdateWorkerMessagesPerSecond(float64(cur-last) / secs)
			}
			last, lastAt = cur, now
		}
	}
}

// Shutdown closes the queue when it supports it, lets the workers drain
// what is left and waits for them. Workers still busy when ctx ends are
// cancelled.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	p.mu.Lock()
	cancel, started := p.cancel, p.started
	p.mu.Unlock()
	if !started {
		return nil
	}
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	return nil
}
