package transactions

import (
	"fmt"

	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
)

type (
	Transaction = transactions.Transaction
	Kind        = transactions.Kind
	Status      = transactions.Status
)

var (
	ErrAlreadyFinalized = fmt.Errorf("transaction already finalized: %w", errs.ErrIllegalTransition)
	ErrNotFound         = transactions.ErrNotFound
	// ErrAutoRejected accompanies a withdrawal rejected during approval
	// because the balance no longer covered it. The returned transaction is
	// the committed REJECTED row.
	ErrAutoRejected = fmt.Errorf("withdrawal auto-rejected: %w", errs.ErrInsufficientFunds)
)

// ReasonInsufficientFunds is stored on auto-rejected withdrawals.
const ReasonInsufficientFunds = "insufficient funds at approval time"

type Request struct {
	UserID string
	Amount int64
	Kind   Kind
	// RequestID makes the request idempotent when set.
	RequestID string
}
