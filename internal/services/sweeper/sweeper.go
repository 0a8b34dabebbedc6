// Package sweeper drives the time-based transitions of the engine: expiring
// unmatched wagers, re-pairing leftovers, disputing matches whose result
// window closed and finishing interrupted settlements.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Wagers interface {
	CancelExpired(ctx context.Context, maxWait time.Duration, limit int) (int, error)
	RetryPending(ctx context.Context, limit int) (int, error)
}

type Matches interface {
	DisputeOverdue(ctx context.Context, limit int) (int, error)
	ResumeSettling(ctx context.Context, limit int) (int, error)
}

type Config struct {
	Interval time.Duration
	Batch    int
	// WagerWait is how long a wager may stay PENDING.
	WagerWait time.Duration
}

type Sweeper struct {
	wagers  Wagers
	matches Matches
	cfg     Config
}

func New(w Wagers, m Matches, cfg Config) *Sweeper {
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}

	return &Sweeper{wagers: w, matches: m, cfg: cfg}
}

// Run sweeps every Interval until ctx is done. Sweep failures are logged and
// retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", s.cfg.Interval)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Report counts what a single sweep changed.
type Report struct {
	Expired  int
	Paired   int
	Disputed int
	Settled  int
}

// Sweep runs every step once. Each step is independent; a failing step does
// not stop the others.
func (s *Sweeper) Sweep(ctx context.Context) Report {
	var r Report

	steps := []struct {
		name string
		out  *int
		run  func(context.Context) (int, error)
	}{
		{"cancel expired wagers", &r.Expired, func(ctx context.Context) (int, error) {
			return s.wagers.CancelExpired(ctx, s.cfg.WagerWait, s.cfg.Batch)
		}},
		{"retry pending wagers", &r.Paired, func(ctx context.Context) (int, error) {
			return s.wagers.RetryPending(ctx, s.cfg.Batch)
		}},
		{"dispute overdue matches", &r.Disputed, func(ctx context.Context) (int, error) {
			return s.matches.DisputeOverdue(ctx, s.cfg.Batch)
		}},
		{"resume settlements", &r.Settled, func(ctx context.Context) (int, error) {
			return s.matches.ResumeSettling(ctx, s.cfg.Batch)
		}},
	}

	for _, st := range steps {
		if ctx.Err() != nil {
			return r
		}

		n, err := st.run(ctx)
		*st.out = n
		if err != nil {
			slog.Warn("sweep step failed", "step", st.name, "error", err)
		}
	}

	if r != (Report{}) {
		slog.Debug("sweep done", "expired", r.Expired, "paired", r.Paired,
			"disputed", r.Disputed, "settled", r.Settled)
	}

	return r
}
