package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
	"github.com/ciwomuli/eve-wormhole/pkg/metrics"
)

const defaultShardCount = 8

// shard holds the wormholes of the submitters that hash to it.
type shard struct {
	mu          sync.RWMutex
	byID        map[string]model.Wormhole
	bySubmitter map[string]map[string]struct{}
}

// ShardedStore is an in-memory Store partitioned by submitter so writers
// for different pilots rarely contend.
type ShardedStore struct {
	shards                []*shard
	shardCount            int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewShardedStore constructs a sharded store and starts its metrics updater,
// which runs until ctx is done or Close is called.
func NewShardedStore(ctx context.Context, opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: metrics.RefreshInterval(),
		stop:                  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{
			byID:        make(map[string]model.Wormhole),
			bySubmitter: make(map[string]map[string]struct{}),
		}
	}

	metrics.UpdateRepositoryShardCount(s.shardCount)
	s.startMetricsUpdater(ctx)
	return s
}

func (s *ShardedStore) shardFor(submitterID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(submitterID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Save implements Store.Save.
func (s *ShardedStore) Save(ctx context.Context, w model.Wormhole) error { //nolint:gocritic // value semantics: the store keeps its own copy
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validate(&w); err != nil {
		return err
	}
	if s.closed() {
		return ErrClosed
	}

	// A re-save under another submitter moves the record between shards.
	for _, other := range s.shards {
		other.mu.Lock()
		if old, ok := other.byID[w.ID]; ok && old.SubmitterID != w.SubmitterID {
			other.remove(old)
		}
		other.mu.Unlock()
	}

	sh := s.shardFor(w.SubmitterID)
	sh.mu.Lock()
	sh.byID[w.ID] = w
	ids, ok := sh.bySubmitter[w.SubmitterID]
	if !ok {
		ids = make(map[string]struct{})
		sh.bySubmitter[w.SubmitterID] = ids
	}
	ids[w.ID] = struct{}{}
	sh.mu.Unlock()
	return nil
}

// remove drops w from the shard; the shard lock must be held.
func (sh *shard) remove(w model.Wormhole) { //nolint:gocritic // read-only
	delete(sh.byID, w.ID)
	if ids, ok := sh.bySubmitter[w.SubmitterID]; ok {
		delete(ids, w.ID)
		if len(ids) == 0 {
			delete(sh.bySubmitter, w.SubmitterID)
		}
	}
}

// ListBySubmitter implements Store.ListBySubmitter.
func (s *ShardedStore) ListBySubmitter(ctx context.Context, submitterID string) ([]model.Wormhole, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if submitterID == "" {
		return nil, ErrEmptySubmitter
	}

	sh := s.shardFor(submitterID)
	sh.mu.RLock()
	ids := sh.bySubmitter[submitterID]
	out := make([]model.Wormhole, 0, len(ids))
	for id := range ids {
		out = append(out, sh.byID[id])
	}
	sh.mu.RUnlock()

	sortNewestFirst(out)
	return out, nil
}

// Count implements Store.Count.
func (s *ShardedStore) Count(_ context.Context) int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.byID)
		sh.mu.RUnlock()
	}
	return n
}

// Close stops the metrics updater. Further Saves fail with ErrClosed.
func (s *ShardedStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
	return nil
}

func (s *ShardedStore) closed() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

func (s *ShardedStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				metrics.UpdateTotalWormholes(s.Count(ctx))
			}
		}
	}()
}
