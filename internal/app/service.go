// Package service wires the submission pipeline together and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ciwomuli/eve-wormhole/internal/adapters/mq/queue"
	workerpool "github.com/ciwomuli/eve-wormhole/internal/adapters/mq/worker"
	"github.com/ciwomuli/eve-wormhole/internal/adapters/repository"
	"github.com/ciwomuli/eve-wormhole/internal/config"
	"github.com/ciwomuli/eve-wormhole/internal/domain/dedupe"
	"github.com/ciwomuli/eve-wormhole/internal/domain/lifetime"
	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
	"github.com/ciwomuli/eve-wormhole/pkg/metrics"
)

// Submitter identifies the pilot behind a request.
type Submitter struct {
	ID   string
	Name string
}

// Service accepts wormhole reports, queues them for the worker pool and
// serves each pilot's stored reports.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	estimator lifetime.Estimator
	pool      *workerpool.Pool

	workerCount          int
	queueSize            int
	dedupeSize           int
	shardCount           int
	storeDriver          string
	sqlitePath           string
	typeLifetimesHours   map[string]float64
	defaultLifetimeHours float64
	now                  func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the duplicate-submission cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the number of shards of the memory store.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithStore selects the store driver; sqlitePath is used by the sqlite driver.
func WithStore(driver, sqlitePath string) Option {
	return func(s *Service) {
		s.storeDriver = driver
		s.sqlitePath = sqlitePath
	}
}

// WithLifetimes sets the per-type lifetime table and its fallback, in hours.
func WithLifetimes(typeHours map[string]float64, defaultHours float64) Option {
	return func(s *Service) {
		s.typeLifetimesHours = typeHours
		s.defaultLifetimeHours = defaultHours
	}
}

// WithClock overrides the time source used to stamp submissions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig applies every pipeline setting of cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		for _, opt := range []Option{
			WithWorkerCount(cfg.WorkerCount),
			WithQueueSize(cfg.QueueSize),
			WithDedupeSize(cfg.DedupeSize),
			WithShardCount(cfg.ShardCount),
			WithStore(cfg.StoreDriver, cfg.SQLitePath),
			WithLifetimes(cfg.TypeLifetimesHours, cfg.DefaultLifetimeHours),
		} {
			opt(s)
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   10_000,
		dedupeSize:  50_000,
		shardCount:  8,
		storeDriver: config.StoreMemory,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	store, err := s.openStore(ctx)
	if err != nil {
		return err
	}
	s.store = store
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	// A submission that never reached the store may be reported again.
	deduper := s.deduper
	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithDropHandler(func(sub model.Submission) {
			deduper.Unrecord(context.Background(), sub.Fingerprint())
		}),
	)
	s.estimator = lifetime.NewTableEstimator(
		lifetime.WithTypeLifetimesHours(s.typeLifetimesHours, s.defaultLifetimeHours),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.estimator, s.store,
		workerpool.WithFailureHandler(func(sub model.Submission, _ error) {
			deduper.Unrecord(context.Background(), sub.Fingerprint())
		}),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "wormhole service started",
		logger.String("store", s.storeDriver),
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeDriver {
	case config.StoreMemory, "":
		return repository.NewShardedStore(ctx, repository.WithShardCount(s.shardCount)), nil
	case config.StoreSQLite:
		st, err := repository.NewSQLiteStore(ctx, s.sqlitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, s.storeDriver)
	}
}

// Stop closes the queue, waits for the workers to drain it and closes the
// store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping wormhole service...")

	var firstErr error
	if err := s.pool.Shutdown(ctx); err != nil {
		firstErr = err
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if left := s.queue.Drain(); len(left) > 0 {
		for i := range left {
			s.deduper.Unrecord(ctx, left[i].Fingerprint())
		}
		s.logger.Warn(ctx, "pending submissions abandoned", logger.Int("count", len(left)))
	}
	if err := s.store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close store: %w", err)
	}

	s.started = false
	s.logger.Info(ctx, "wormhole service stopped")
	return firstErr
}

// Submit accepts a validated report from who. Repeated reports of the same
// signature in the same system are acknowledged as duplicates without being
// queued. A full queue yields an error wrapping types.ErrBackpressure.
func (s *Service) Submit(ctx context.Context, who Submitter, req types.AddWormholeRequest) (types.AddWormholeResult, error) { //nolint:gocritic // request is a value DTO
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.AddWormholeResult{}, ErrNotStarted
	}
	if who.ID == "" {
		return types.AddWormholeResult{}, ErrNoSubmitter
	}

	sub := normalize(who, req)
	sub.ID = uuid.NewString()
	sub.SubmittedAt = s.now().UTC()

	key := sub.Fingerprint()
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission",
			logger.String("submitter", who.ID),
			logger.String("signature", sub.Signature),
		)
		return types.AddWormholeResult{Status: types.StatusDuplicate, Duplicate: true}, nil
	}

	if err := s.queue.Enqueue(ctx, sub); err != nil {
		s.deduper.Unrecord(ctx, key)
		metrics.RecordSubmissionRejected(rejectReason(err))
		kind := types.ErrUnavailable
		if errors.Is(err, queue.ErrQueueFull) {
			kind = types.ErrBackpressure
		}
		return types.AddWormholeResult{}, fmt.Errorf("%w: enqueue submission: %w", kind, err)
	}

	metrics.RecordSubmissionAccepted()
	return types.AddWormholeResult{ID: sub.ID, Status: types.StatusAccepted}, nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, queue.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, queue.ErrClosed):
		return "queue_closed"
	default:
		return "enqueue_error"
	}
}

func normalize(who Submitter, req types.AddWormholeRequest) model.Submission { //nolint:gocritic // request is a value DTO
	life := model.Life(strings.ToLower(strings.TrimSpace(req.Life)))
	if life == "" {
		life = model.LifeStable
	}
	mass := model.Mass(strings.ToLower(strings.TrimSpace(req.Mass)))
	if mass == "" {
		mass = model.MassStable
	}
	return model.Submission{
		SubmitterID:   who.ID,
		SubmitterName: who.Name,
		Signature:     strings.ToUpper(strings.TrimSpace(req.Signature)),
		SourceSystem:  strings.TrimSpace(req.SourceSystem),
		TargetSystem:  strings.TrimSpace(req.TargetSystem),
		Type:          strings.ToUpper(strings.TrimSpace(req.Type)),
		Life:          life,
		Mass:          mass,
		Note:          strings.TrimSpace(req.Note),
	}
}

// ListUser returns the wormholes reported by submitterID, newest first.
func (s *Service) ListUser(ctx context.Context, submitterID string) ([]types.Wormhole, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	if submitterID == "" {
		return nil, ErrNoSubmitter
	}

	rows, err := s.store.ListBySubmitter(ctx, submitterID)
	if err != nil {
		return nil, fmt.Errorf("list wormholes: %w", err)
	}

	now := s.now()
	out := make([]types.Wormhole, len(rows))
	for i := range rows {
		w := &rows[i]
		out[i] = types.Wormhole{
			ID:           w.ID,
			Signature:    w.Signature,
			SourceSystem: w.SourceSystem,
			TargetSystem: w.TargetSystem,
			Type:         w.Type,
			Life:         string(w.Life),
			Mass:         string(w.Mass),
			Note:         w.Note,
			Submitter:    w.SubmitterName,
			SubmittedAt:  w.SubmittedAt,
			ExpiresAt:    w.ExpiresAt,
			Expired:      w.Expired(now),
		}
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"storeDriver": s.storeDriver,
	}
	if s.started {
		ctx := context.Background()
		queueLen := s.queue.Len()
		total := s.store.Count(ctx)

		stats["workerCount"] = s.pool.Size()
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["totalWormholes"] = total
		stats["processed"] = s.pool.Processed()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateTotalWormholes(total)
	}
	return stats
}
