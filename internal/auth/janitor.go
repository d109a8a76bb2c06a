// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 YoungCoder Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultPurgeInterval is how often the janitor removes expired sessions.
const DefaultPurgeInterval = time.Hour

// ExpiredSessionPurger removes expired sessions. *Service implements it.
type ExpiredSessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithJanitorLogger sets the janitor's logger.
func WithJanitorLogger(logger *slog.Logger) JanitorOption {
	return func(j *Janitor) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithPurgeObserver registers a callback invoked with each non-zero purge count.
func WithPurgeObserver(fn func(int64)) JanitorOption {
	return func(j *Janitor) {
		j.observe = fn
	}
}

// Janitor periodically deletes expired sessions.
type Janitor struct {
	purger   ExpiredSessionPurger
	interval time.Duration
	logger   *slog.Logger
	observe  func(int64)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJanitor creates a janitor that purges every interval.
// An interval of zero or less disables it: Start becomes a no-op.
func NewJanitor(purger ExpiredSessionPurger, interval time.Duration, opts ...JanitorOption) *Janitor {
	j := &Janitor{
		purger:   purger,
		interval: interval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RunOnce performs a single purge.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.InfoContext(ctx, "purged expired sessions", "count", n)
		if j.observe != nil {
			j.observe(n)
		}
	}
	return n, nil
}

// Start begins periodic purging in the background.
func (j *Janitor) Start(ctx context.Context) {
	if j.interval <= 0 {
		j.logger.Info("session janitor disabled")
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go j.run(ctx)
}

// Stop stops the janitor and waits for an in-flight purge to finish.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run once immediately
	j.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.cycle(ctx)
		}
	}
}

func (j *Janitor) cycle(ctx context.Context) {
	if _, err := j.RunOnce(ctx); err != nil && ctx.Err() == nil {
		j.logger.ErrorContext(ctx, "session purge failed", "error", err)
	}
}
