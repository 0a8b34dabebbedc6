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
	"github.com/fastprodman/wagerengine/internal/repos/balances"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
	"github.com/fastprodman/wagerengine/internal/services/authority"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

// ApproveTransaction applies a PENDING transaction exactly once.
//
// A withdrawal no longer covered by the available balance is committed as
// REJECTED and returned together with ErrAutoRejected.
func (s *Service) ApproveTransaction(ctx context.Context, id, approverID string) (Transaction, error) {
	ctx, span := tracer.Start(ctx, "transactions.Approve")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	err := s.authorize(ctx, approverID)
	if err != nil {
		return Transaction{}, err
	}

	var (
		out          Transaction
		changed      []balances.Balance
		autoRejected bool
	)

	err = pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		changed, autoRejected = nil, false

		t, err := s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}

		final := transactions.Final{Status: transactions.StatusApproved, ApproverID: approverID}

		switch t.Kind {
		case transactions.KindDeposit:
			b, err := s.Ledger.Credit(ctx, tx, t.UserID, t.Amount, "deposit "+t.ID)
			if err != nil {
				return err
			}
			changed = append(changed, b)

		case transactions.KindWithdraw:
			b, err := s.Ledger.Debit(ctx, tx, t.UserID, t.Amount, "withdrawal "+t.ID)
			switch {
			case errors.Is(err, errs.ErrInsufficientFunds):
				autoRejected = true
				final = transactions.Final{
					Status:     transactions.StatusRejected,
					ApproverID: approverID,
					Reason:     ReasonInsufficientFunds,
				}
			case err != nil:
				return err
			default:
				changed = append(changed, b)
			}

		default:
			return fmt.Errorf("%s transactions are not approvable: %w", t.Kind, errs.ErrIllegalTransition)
		}

		out, err = s.txns.Finalize(ctx, tx, t.ID, final)
		return err
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("approve transaction: %w", err)
	}

	s.finalized(ctx, out, changed)

	if autoRejected {
		return out, ErrAutoRejected
	}

	return out, nil
}

// RejectTransaction closes a PENDING transaction without moving funds.
func (s *Service) RejectTransaction(ctx context.Context, id, approverID, reason string) (Transaction, error) {
	ctx, span := tracer.Start(ctx, "transactions.Reject")
	defer span.End()
	span.SetAttributes(attribute.String("transaction_id", id))

	err := s.authorize(ctx, approverID)
	if err != nil {
		return Transaction{}, err
	}

	var out Transaction
	err = pgutils.WithTxRetry(ctx, s.db, s.Retry, func(tx *sql.Tx) error {
		t, err := s.lockPending(ctx, tx, id)
		if err != nil {
			return err
		}

		out, err = s.txns.Finalize(ctx, tx, t.ID, transactions.Final{
			Status:     transactions.StatusRejected,
			ApproverID: approverID,
			Reason:     reason,
		})
		return err
	})
	if err != nil {
		return Transaction{}, fmt.Errorf("reject transaction: %w", err)
	}

	s.finalized(ctx, out, nil)

	return out, nil
}

func (s *Service) authorize(ctx context.Context, approverID string) error {
	if approverID == "" {
		return errs.Validation("approverId is required")
	}
	return s.Authority.Authorize(ctx, approverID, authority.ActionFinalizeTransaction)
}

func (s *Service) lockPending(ctx context.Context, tx *sql.Tx, id string) (Transaction, error) {
	if uuid.Validate(id) != nil {
		return Transaction{}, ErrNotFound
	}

	t, err := s.txns.Lock(ctx, tx, id)
	if err != nil {
		return Transaction{}, err
	}

	if t.Status != transactions.StatusPending {
		return Transaction{}, fmt.Errorf("transaction %s is %s: %w", t.ID, t.Status, ErrAlreadyFinalized)
	}

	return t, nil
}

func (s *Service) finalized(ctx context.Context, t Transaction, changed []balances.Balance) {
	s.Metrics.TransactionsFinalized.WithLabelValues(string(t.Kind), string(t.Status)).Inc()

	events := append([]notify.Event{notify.TransactionFinalized(t)}, notify.Balances(changed...)...)
	s.Publisher.Publish(ctx, events...)
}
