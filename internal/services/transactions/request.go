package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
)

// RequestTransaction records a PENDING deposit or withdrawal. No funds move.
//
// A withdrawal larger than the current available balance is rejected up
// front; approval re-checks regardless. A repeated RequestID returns the
// transaction created by the first call.
func (s *Service) RequestTransaction(ctx context.Context, req Request) (Transaction, error) {
	ctx, span := tracer.Start(ctx, "transactions.Request")
	defer span.End()
	span.SetAttributes(attribute.String("user_id", req.UserID), attribute.String("kind", string(req.Kind)))

	err := s.validate(req)
	if err != nil {
		return Transaction{}, err
	}

	if req.RequestID != "" {
		t, err := s.txns.GetByRequestID(ctx, req.RequestID)
		if err == nil {
			return replayed(t, req)
		}
		if !errors.Is(err, transactions.ErrNotFound) {
			return Transaction{}, fmt.Errorf("lookup request: %w", err)
		}
	}

	user, err := s.Accounts.GetUser(ctx, req.UserID)
	if err != nil {
		return Transaction{}, fmt.Errorf("verify user: %w", err)
	}

	if req.Kind == transactions.KindWithdraw {
		b, err := s.Ledger.Balance(ctx, req.UserID)
		if err != nil {
			return Transaction{}, err
		}
		if b.Available < req.Amount {
			return Transaction{}, fmt.Errorf("withdraw %d with %d available (accounts reports %d): %w",
				req.Amount, b.Available, user.Available, errs.ErrInsufficientFunds)
		}
	}

	var out Transaction
	err = pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		var err error
		out, err = s.txns.Insert(ctx, tx, Transaction{
			ID:        uuid.NewString(),
			UserID:    req.UserID,
			Amount:    req.Amount,
			Kind:      req.Kind,
			Status:    transactions.StatusPending,
			RequestID: req.RequestID,
		})
		return err
	})
	if errors.Is(err, transactions.ErrDuplicateTransaction) && req.RequestID != "" {
		// lost a race against the same request
		t, err := s.txns.GetByRequestID(ctx, req.RequestID)
		if err != nil {
			return Transaction{}, fmt.Errorf("lookup request: %w", err)
		}
		return replayed(t, req)
	}
	if err != nil {
		return Transaction{}, fmt.Errorf("request transaction: %w", err)
	}

	return out, nil
}

// MaxAmount bounds a single request so balances stay far from int64 overflow.
const MaxAmount int64 = 1_000_000_000_000

func (s *Service) validate(req Request) error {
	if req.UserID == "" {
		return errs.Validation("userId is required")
	}
	if req.UserID == s.Ledger.House() {
		return errs.Validation("userId is reserved")
	}

	switch req.Kind {
	case transactions.KindDeposit, transactions.KindWithdraw:
	case transactions.KindPayout:
		return errs.Validation("payouts are issued by settlement only")
	default:
		return errs.Validation(fmt.Sprintf("unknown transaction kind %q", req.Kind))
	}

	if req.Amount <= 0 {
		return errs.Validation("amount must be positive")
	}
	if req.Amount > MaxAmount {
		return errs.Validation(fmt.Sprintf("amount must not exceed %d", MaxAmount))
	}
	if s.Denomination > 0 && req.Amount%s.Denomination != 0 {
		return errs.Validation(fmt.Sprintf("amount must be a multiple of %d", s.Denomination))
	}

	return nil
}

func replayed(t Transaction, req Request) (Transaction, error) {
	if t.UserID != req.UserID || t.Kind != req.Kind || t.Amount != req.Amount {
		return Transaction{}, errs.Validation("requestId was already used for a different transaction")
	}
	return t, nil
}
