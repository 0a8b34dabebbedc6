package wagers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/balances"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
	"github.com/fastprodman/wagerengine/internal/services/ledger"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

// CancelWager withdraws a PENDING wager and refunds the stake to its owner.
func (s *Service) CancelWager(ctx context.Context, wagerID, byUserID string) (Wager, error) {
	ctx, span := tracer.Start(ctx, "wagers.Cancel")
	defer span.End()

	if uuid.Validate(wagerID) != nil {
		return Wager{}, ErrNotFound
	}

	// player1 never changes, so ownership is checked before taking a row
	// lock that would stall pairing scans.
	cur, err := s.wagers.Get(ctx, wagerID)
	if err != nil {
		return Wager{}, fmt.Errorf("cancel wager: %w", err)
	}
	if cur.Player1ID != byUserID {
		return Wager{}, fmt.Errorf("cancel wager: %w", ErrNotOwner)
	}

	var (
		out     Wager
		changed []balances.Balance
	)

	err = pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		w, err := s.wagers.Lock(ctx, tx, wagerID)
		if err != nil {
			return err
		}

		if w.Status != wagers.StatusPending {
			return fmt.Errorf("wager %s is %s: %w", w.ID, w.Status, ErrNotCancellable)
		}

		out, changed, err = s.refund(ctx, tx, w)
		return err
	})
	if err != nil {
		return Wager{}, fmt.Errorf("cancel wager: %w", err)
	}

	s.cancelled(ctx, "withdrawn", out, changed)

	return out, nil
}

// CancelExpired refunds PENDING wagers that waited longer than maxWait.
// Rows locked by a concurrent pairing or sweep are skipped.
func (s *Service) CancelExpired(ctx context.Context, maxWait time.Duration, limit int) (int, error) {
	ctx, span := tracer.Start(ctx, "wagers.CancelExpired")
	defer span.End()

	type refunded struct {
		w       Wager
		changed []balances.Balance
	}

	var done []refunded

	err := pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		done = nil

		expired, err := s.wagers.LockExpiredPending(ctx, tx, s.Now().Add(-maxWait), limit)
		if err != nil {
			return err
		}

		owners := make([]string, 0, len(expired))
		for _, w := range expired {
			owners = append(owners, w.Player1ID)
		}
		err = s.Ledger.LockUsers(ctx, tx, owners...)
		if err != nil {
			return err
		}

		for _, w := range expired {
			out, changed, err := s.refund(ctx, tx, w)
			if err != nil {
				return err
			}
			done = append(done, refunded{w: out, changed: changed})
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cancel expired wagers: %w", err)
	}

	for _, r := range done {
		slog.Info("unmatched wager expired", "wager_id", r.w.ID, "user_id", r.w.Player1ID)
		s.cancelled(ctx, "expired", r.w, r.changed)
	}

	return len(done), nil
}

func (s *Service) refund(ctx context.Context, tx *sql.Tx, w Wager) (Wager, []balances.Balance, error) {
	rel, err := s.Ledger.Release(ctx, tx, w.HoldID, ledger.ToOwner())
	if err != nil {
		return Wager{}, nil, err
	}

	out, err := s.wagers.SetStatus(ctx, tx, w.ID, wagers.StatusCancelled, wagers.StatusPending)
	if err != nil {
		return Wager{}, nil, err
	}

	return out, rel.Balances, nil
}

func (s *Service) cancelled(ctx context.Context, cause string, w Wager, changed []balances.Balance) {
	s.Metrics.WagersCancelled.WithLabelValues(cause).Inc()
	s.Publisher.Publish(ctx, append(notify.Balances(changed...), notify.WagerUpdated(w))...)
}
