package wagers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/balances"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

// CreateWager escrows the stake and inserts a PENDING wager in one
// transaction, then tries to pair it. The returned wager is PENDING or
// MATCHED.
func (s *Service) CreateWager(ctx context.Context, req CreateRequest) (Wager, error) {
	ctx, span := tracer.Start(ctx, "wagers.Create")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", req.UserID), attribute.String("mode", req.Mode))

	if req.UserID == "" {
		return Wager{}, errs.Validation("userId is required")
	}
	if req.UserID == s.Ledger.House() {
		return Wager{}, errs.Validation("userId is reserved")
	}

	mode, err := s.Catalog.Resolve(req.Mode, req.Amount)
	if err != nil {
		return Wager{}, err
	}

	if req.RequestID != "" {
		w, err := s.wagers.GetByRequestID(ctx, req.RequestID)
		if err == nil {
			return replayed(w, req)
		}
		if !errors.Is(err, wagers.ErrNotFound) {
			return Wager{}, fmt.Errorf("lookup request: %w", err)
		}
	}

	user, err := s.Accounts.GetUser(ctx, req.UserID)
	if err != nil {
		return Wager{}, fmt.Errorf("verify user: %w", err)
	}

	var (
		w       Wager
		balance balances.Balance
	)

	err = pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		id := uuid.NewString()

		hold, b, err := s.Ledger.Hold(ctx, tx, req.UserID, mode.Stake, "wager "+id)
		if err != nil {
			return err
		}
		balance = b

		w, err = s.wagers.Insert(ctx, tx, Wager{
			ID:        id,
			Player1ID: req.UserID,
			Amount:    mode.Stake,
			Mode:      mode.Name,
			Status:    wagers.StatusPending,
			HoldID:    hold.ID,
			RequestID: req.RequestID,
		})
		return err
	})
	switch {
	case errors.Is(err, wagers.ErrDuplicateWager) && req.RequestID != "":
		w, err := s.wagers.GetByRequestID(ctx, req.RequestID)
		if err != nil {
			return Wager{}, fmt.Errorf("lookup request: %w", err)
		}
		return replayed(w, req)
	case errors.Is(err, errs.ErrInsufficientFunds):
		return Wager{}, fmt.Errorf("stake %d (accounts reports %d available): %w", mode.Stake, user.Available, err)
	case err != nil:
		return Wager{}, fmt.Errorf("create wager: %w", err)
	}

	s.Metrics.WagersCreated.WithLabelValues(mode.Name).Inc()
	s.Publisher.Publish(ctx, notify.BalanceChanged(balance), notify.WagerUpdated(w))

	paired, err := s.Pair(ctx, w.ID)
	if err != nil {
		// the wager is committed and stays queued; the sweeper retries pairing
		slog.Warn("pair new wager", "wager_id", w.ID, "error", err)
		return w, nil
	}

	return paired, nil
}

func replayed(w Wager, req CreateRequest) (Wager, error) {
	if w.Player1ID != req.UserID || w.Mode != req.Mode || w.Amount != req.Amount {
		return Wager{}, errs.Validation("requestId was already used for a different wager")
	}
	return w, nil
}
