package resolver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/matches"
)

// DisputeOverdue escalates matches whose result window closed without two
// declarations.
func (s *Service) DisputeOverdue(ctx context.Context, limit int) (int, error) {
	ctx, span := tracer.Start(ctx, "resolver.DisputeOverdue")
	defer span.End()

	var disputed []matches.Match

	err := pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		disputed = nil

		overdue, err := s.matches.LockOverdue(ctx, tx, s.Now(), limit)
		if err != nil {
			return err
		}

		for _, m := range overdue {
			m.State = matches.StateDisputed
			m.DisputeReason = ReasonUnconfirmed

			m, err = s.matches.Update(ctx, tx, m, matches.StateAwaiting)
			if err != nil {
				return err
			}
			disputed = append(disputed, m)
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("dispute overdue matches: %w", err)
	}

	for _, m := range disputed {
		s.Metrics.Disputes.WithLabelValues(ReasonUnconfirmed).Inc()
		slog.Info("match disputed", "match_id", m.ID, "reason", ReasonUnconfirmed)
	}

	return len(disputed), nil
}

// ResumeSettling settles matches left in SETTLING, e.g. by a crash between
// agreement and settlement. It returns how many it settled.
func (s *Service) ResumeSettling(ctx context.Context, limit int) (int, error) {
	ids, err := s.matches.ListIDsInState(ctx, matches.StateSettling, limit)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, id := range ids {
		st, err := s.Settle(ctx, id)
		if err != nil {
			return n, err
		}
		if !st.Replayed {
			slog.Info("resumed settlement", "match_id", id)
			n++
		}
	}

	return n, nil
}
