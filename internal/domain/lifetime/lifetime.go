// Package lifetime estimates when a reported wormhole collapses.
package lifetime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ciwomuli/eve-wormhole/internal/domain/model"
)

const (
	defaultLifetime = 16 * time.Hour
	// EOLRemaining is the most time an end-of-life wormhole has left.
	EOLRemaining = 4 * time.Hour
)

// Option applies a configuration option to the TableEstimator.
type Option func(*TableEstimator)

// WithTypeLifetimesHours sets per-type lifetimes and the fallback for
// unknown types. Non-positive entries are ignored.
func WithTypeLifetimesHours(hours map[string]float64, defaultHours float64) Option {
	return func(e *TableEstimator) {
		e.lifetimes = make(map[string]time.Duration, len(hours))
		for code, h := range hours {
			if h > 0 {
				e.lifetimes[strings.ToUpper(code)] = hoursToDuration(h)
			}
		}
		if defaultHours > 0 {
			e.defaultLifetime = hoursToDuration(defaultHours)
		}
	}
}

// WithEOLRemaining overrides the cap applied to end-of-life reports.
func WithEOLRemaining(d time.Duration) Option {
	return func(e *TableEstimator) {
		if d > 0 {
			e.eolRemaining = d
		}
	}
}

func hoursToDuration(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

// Input carries the submission fields that drive the estimate.
type Input struct {
	Type        string
	Life        model.Life
	SubmittedAt time.Time
}

// Result is the estimated remaining lifetime and the resulting expiry.
type Result struct {
	Lifetime  time.Duration
	ExpiresAt time.Time
}

// Estimator computes the expiry of a submission.
type Estimator interface {
	Estimate(ctx context.Context, in Input) (Result, error)
}

// TableEstimator looks lifetimes up in a static per-type table.
type TableEstimator struct {
	lifetimes       map[string]time.Duration
	defaultLifetime time.Duration
	eolRemaining    time.Duration
}

// NewTableEstimator creates an estimator with configuration options.
func NewTableEstimator(opts ...Option) *TableEstimator {
	e := &TableEstimator{
		lifetimes:       map[string]time.Duration{},
		defaultLifetime: defaultLifetime,
		eolRemaining:    EOLRemaining,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate returns the lifetime for in. End-of-life reports never get more
// than the EOL cap; submissions without a timestamp are treated as "now".
func (e *TableEstimator) Estimate(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	lt, ok := e.lifetimes[strings.ToUpper(in.Type)]
	if !ok {
		lt = e.defaultLifetime
	}
	if in.Life == model.LifeEOL && lt > e.eolRemaining {
		lt = e.eolRemaining
	}

	at := in.SubmittedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Result{Lifetime: lt, ExpiresAt: at.Add(lt)}, nil
}
