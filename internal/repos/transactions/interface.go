package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/wagerengine/internal/errs"
)

var (
	ErrDuplicateTransaction = errors.New("duplicate transaction")
	ErrNotFound             = fmt.Errorf("transaction: %w", errs.ErrNotFound)
	ErrNotPending           = fmt.Errorf("transaction is not pending: %w", errs.ErrIllegalTransition)
)

type Kind string

const (
	KindDeposit  Kind = "DEPOSIT"
	KindWithdraw Kind = "WITHDRAW"
	KindPayout   Kind = "PAYOUT"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

type Transaction struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Amount      int64      `json:"amount"`
	Kind        Kind       `json:"kind"`
	Status      Status     `json:"status"`
	RequestID   string     `json:"requestId,omitempty"`
	MatchID     string     `json:"matchId,omitempty"`
	ApproverID  string     `json:"approverId,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
}

// Final is the terminal data written by Finalize.
type Final struct {
	Status     Status
	ApproverID string
	Reason     string
}

type Transactions interface {
	// Insert returns ErrDuplicateTransaction when the request id or match id
	// was already used.
	Insert(ctx context.Context, tx *sql.Tx, t Transaction) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	GetByRequestID(ctx context.Context, requestID string) (Transaction, error)
	Lock(ctx context.Context, tx *sql.Tx, id string) (Transaction, error)
	// Finalize moves a PENDING transaction to a terminal status.
	Finalize(ctx context.Context, tx *sql.Tx, id string, f Final) (Transaction, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Transaction, error)
}
