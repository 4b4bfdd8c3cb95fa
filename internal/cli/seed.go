package cli

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/ciwomuli/eve-wormhole/internal/domain/types"
	"github.com/ciwomuli/eve-wormhole/pkg/logger"
)

const (
	signatureSpace     = 26 * 26 * 26 * 1000
	progressInterval   = time.Second
	pollInterval       = 200 * time.Millisecond
	directoryPerm      = 0o750
	filePerm           = 0o600
	eolOneIn           = 5
	defaultSeedCount   = 1000
	defaultSeedWait    = 30 * time.Second
	workersPerCPU      = 2
	percentMultiplier  = 100
	systemNumberDigits = 1_000_000
)

var (
	seedTypes   = []string{"K162", "B274", "C247", "H296", "N062", "V753", "X877"}
	seedTargets = []string{"Jita", "Amarr", "Dodixie", "Rens", "Hek", "Thera", "Turnur"}
	seedMasses  = []string{"stable", "destab", "critical"}
)

// seedAPI is the part of the wormhole API the seeder drives.
type seedAPI interface {
	AddWormhole(ctx context.Context, params any) (json.RawMessage, error)
	ListWormholeUser(ctx context.Context) (json.RawMessage, error)
}

type seedOptions struct {
	count   int
	workers int
	dupes   int
	wait    time.Duration
	output  string
}

type seedStats struct {
	generated int
	submitted int64
	accepted  int64
	duplicate int64
	failed    int64
	listed    int
	duration  time.Duration
}

func seedCmd(o *rootOptions) *cobra.Command {
	opts := seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Submit generated wormholes concurrently and verify they are listed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := o.api()
			if err != nil {
				return err
			}
			stats, err := runSeed(cmd.Context(), api, opts)
			printSeedStats(cmd.OutOrStdout(), stats)
			return err
		},
	}

	f := cmd.Flags()
	f.IntVarP(&opts.count, "count", "n", defaultSeedCount, "number of wormholes to submit")
	f.IntVarP(&opts.workers, "workers", "w", runtime.NumCPU()*workersPerCPU, "concurrent submitters")
	f.IntVar(&opts.dupes, "dupes", 0, "resubmit this many reports to check duplicate suppression")
	f.DurationVar(&opts.wait, "wait", defaultSeedWait, "how long to wait for submissions to be listed")
	f.StringVarP(&opts.output, "output", "o", "", "write generated requests to this JSON file")
	return cmd
}

func runSeed(ctx context.Context, api seedAPI, opts seedOptions) (*seedStats, error) {
	stats := &seedStats{}
	if opts.count <= 0 || opts.count > signatureSpace {
		return stats, fmt.Errorf("%w: --count must be in 1..%d", ErrUsage, signatureSpace)
	}
	if opts.workers < 1 {
		opts.workers = 1
	}
	if opts.dupes > opts.count {
		opts.dupes = opts.count
	}
	start := time.Now()
	defer func() { stats.duration = time.Since(start) }()

	reqs, err := generateRequests(ctx, opts.count, opts.workers)
	if err != nil {
		return stats, err
	}
	stats.generated = len(reqs)

	if opts.output != "" {
		if err := saveRequests(opts.output, reqs); err != nil {
			logger.Get().Warn(ctx, "failed to save generated requests", logger.Error(err))
		}
	}

	ids := submitRequests(ctx, api, reqs, opts.workers, stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("submission interrupted: %w", err)
	}

	for i := 0; i < opts.dupes; i++ {
		if ids[i] == "" {
			continue
		}
		data, err := api.AddWormhole(ctx, reqs[i])
		if err != nil {
			return stats, fmt.Errorf("resubmit %s: %w", reqs[i].Signature, err)
		}
		var res types.AddWormholeResult
		if err := json.Unmarshal(data, &res); err != nil {
			return stats, fmt.Errorf("decode resubmit result: %w", err)
		}
		if !res.Duplicate {
			return stats, fmt.Errorf("%w: resubmitted %s was not flagged duplicate", ErrVerification, reqs[i].Signature)
		}
		stats.duplicate++
	}

	return stats, verifyListed(ctx, api, ids, opts.wait, stats)
}

// generateRequests builds count reports with distinct signatures, splitting
// the work across workers.
func generateRequests(ctx context.Context, count, workers int) ([]types.AddWormholeRequest, error) {
	offset, err := randomInt(signatureSpace)
	if err != nil {
		return nil, err
	}
	reqs := make([]types.AddWormholeRequest, count)

	workers = min(workers, count)
	per := count / workers
	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		from := w * per
		to := from + per
		if w == workers-1 {
			to = count
		}
		wg.Add(1)
		go func(from, to int) {
			defer wg.Done()
			for i := from; i < to; i++ {
				if err := ctx.Err(); err != nil {
					errs <- err
					return
				}
				req, err := generateRequest((offset + i) % signatureSpace)
				if err != nil {
					errs <- err
					return
				}
				reqs[i] = req
			}
		}(from, to)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return nil, fmt.Errorf("generate requests: %w", err)
	}
	return reqs, nil
}

func generateRequest(n int) (types.AddWormholeRequest, error) {
	system, err := randomInt(systemNumberDigits)
	if err != nil {
		return types.AddWormholeRequest{}, err
	}
	pick, err := randomInt(len(seedTypes) * len(seedTargets) * len(seedMasses) * eolOneIn)
	if err != nil {
		return types.AddWormholeRequest{}, err
	}
	life := "stable"
	if pick%eolOneIn == 0 {
		life = "eol"
	}
	pick /= eolOneIn
	return types.AddWormholeRequest{
		Signature:    signatureFor(n),
		SourceSystem: fmt.Sprintf("J%06d", system),
		TargetSystem: seedTargets[pick%len(seedTargets)],
		Type:         seedTypes[(pick/len(seedTargets))%len(seedTypes)],
		Life:         life,
		Mass:         seedMasses[(pick/(len(seedTargets)*len(seedTypes)))%len(seedMasses)],
	}, nil
}

// signatureFor maps n in [0, signatureSpace) to a unique "ABC-123" code.
func signatureFor(n int) string {
	letters := n / 1000
	b := []byte{
		byte('A' + letters/(26*26)%26),
		byte('A' + letters/26%26),
		byte('A' + letters%26),
		'-',
	}
	return string(b) + fmt.Sprintf("%03d", n%1000)
}

func randomInt(upper int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(upper)))
	if err != nil {
		return 0, fmt.Errorf("random: %w", err)
	}
	return int(v.Int64()), nil
}

// submitRequests posts reqs with a pool of workers and returns the accepted
// ID per request index ("" when not accepted).
func submitRequests(ctx context.Context, api seedAPI, reqs []types.AddWormholeRequest, workers int, stats *seedStats) []string {
	ids := make([]string, len(reqs))
	jobs := make(chan int, workers*2)
	log := logger.Get().Named("seed")

	var (
		wg         sync.WaitGroup
		lastReport atomic.Int64
	)
	lastReport.Store(time.Now().UnixNano())

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				id, dup, err := submitOne(ctx, api, reqs[i])
				atomic.AddInt64(&stats.submitted, 1)
				switch {
				case err != nil:
					atomic.AddInt64(&stats.failed, 1)
					log.Debug(ctx, "submit failed", logger.String("signature", reqs[i].Signature), logger.Error(err))
				case dup:
					atomic.AddInt64(&stats.duplicate, 1)
				default:
					atomic.AddInt64(&stats.accepted, 1)
					ids[i] = id
				}

				last := lastReport.Load()
				if time.Since(time.Unix(0, last)) >= progressInterval && lastReport.CompareAndSwap(last, time.Now().UnixNano()) {
					log.Info(ctx, "progress",
						logger.Int64("submitted", atomic.LoadInt64(&stats.submitted)),
						logger.Int("total", len(reqs)))
				}
			}
		}()
	}

feed:
	for i := range reqs {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return ids
}

func submitOne(ctx context.Context, api seedAPI, req types.AddWormholeRequest) (string, bool, error) { //nolint:gocritic // request is a value DTO
	data, err := api.AddWormhole(ctx, req)
	if err != nil {
		return "", false, err
	}
	var res types.AddWormholeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return "", false, fmt.Errorf("decode add result: %w", err)
	}
	return res.ID, res.Duplicate, nil
}

// verifyListed polls the listing until every accepted ID shows up, then
// checks the newest-first order.
func verifyListed(ctx context.Context, api seedAPI, ids []string, wait time.Duration, stats *seedStats) error {
	want := map[string]struct{}{}
	for _, id := range ids {
		if id != "" {
			want[id] = struct{}{}
		}
	}

	deadline := time.Now().Add(wait)
	for {
		rows, err := listRows(ctx, api)
		if err != nil {
			return err
		}
		stats.listed = len(rows)
		missing := countMissing(rows, want)
		if missing == 0 {
			return checkNewestFirst(rows)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d accepted wormholes not listed after %s", ErrVerification, missing, wait)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("verification interrupted: %w", ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

func listRows(ctx context.Context, api seedAPI) ([]types.Wormhole, error) {
	data, err := api.ListWormholeUser(ctx)
	if err != nil {
		return nil, err
	}
	var rows []types.Wormhole
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode wormholes: %w", err)
	}
	return rows, nil
}

func countMissing(rows []types.Wormhole, want map[string]struct{}) int {
	seen := 0
	for i := range rows {
		if _, ok := want[rows[i].ID]; ok {
			seen++
		}
	}
	return len(want) - seen
}

func checkNewestFirst(rows []types.Wormhole) error {
	for i := 1; i < len(rows); i++ {
		if rows[i].SubmittedAt.After(rows[i-1].SubmittedAt) {
			return fmt.Errorf("%w: row %d is newer than row %d", ErrVerification, i, i-1)
		}
	}
	return nil
}

func saveRequests(path string, reqs []types.AddWormholeRequest) error {
	if len(reqs) == 0 {
		return errors.New("no requests to save")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPerm); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(reqs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode requests: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), filePerm); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func printSeedStats(w io.Writer, s *seedStats) {
	var successRate, perSecond float64
	if s.submitted > 0 {
		successRate = float64(s.accepted) / float64(s.submitted) * percentMultiplier
	}
	if s.duration > 0 {
		perSecond = float64(s.submitted) / s.duration.Seconds()
	}
	fmt.Fprintf(w, "generated  %d\n", s.generated)
	fmt.Fprintf(w, "submitted  %d\n", s.submitted)
	fmt.Fprintf(w, "accepted   %d (%s%%)\n", s.accepted, strconv.FormatFloat(successRate, 'f', 1, 64))
	fmt.Fprintf(w, "duplicate  %d\n", s.duplicate)
	fmt.Fprintf(w, "failed     %d\n", s.failed)
	fmt.Fprintf(w, "listed     %d\n", s.listed)
	fmt.Fprintf(w, "duration   %s (%.0f req/s)\n", s.duration.Round(time.Millisecond), perSecond)
}
