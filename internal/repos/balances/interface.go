package balances

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/wagerengine/internal/errs"
)

var (
	ErrInsufficientFunds = fmt.Errorf("balance guard: %w", errs.ErrInsufficientFunds)
	ErrNotFound          = fmt.Errorf("balance: %w", errs.ErrNotFound)
)

type Balance struct {
	UserID    string    `json:"userId"`
	Available int64     `json:"available"`
	Escrowed  int64     `json:"escrowed"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type EntryKind string

const (
	EntryCredit  EntryKind = "CREDIT"
	EntryDebit   EntryKind = "DEBIT"
	EntryHold    EntryKind = "HOLD"
	EntryRelease EntryKind = "RELEASE"
	EntryForfeit EntryKind = "FORFEIT"
)

// Entry is one line of the append-only ledger journal.
type Entry struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"userId"`
	Kind       EntryKind `json:"kind"`
	DAvailable int64     `json:"dAvailable"`
	DEscrowed  int64     `json:"dEscrowed"`
	HoldID     string    `json:"holdId,omitempty"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Balances interface {
	Get(ctx context.Context, userID string) (Balance, error)
	// Ensure creates an empty balance row if the user has none.
	Ensure(ctx context.Context, tx *sql.Tx, userID string) error
	Lock(ctx context.Context, tx *sql.Tx, userID string) (Balance, error)
	// Apply adds the deltas in one guarded statement; it fails with
	// ErrInsufficientFunds instead of driving either column negative.
	Apply(ctx context.Context, tx *sql.Tx, userID string, dAvailable, dEscrowed int64) (Balance, error)
	AppendEntry(ctx context.Context, tx *sql.Tx, e Entry) error
	ListEntries(ctx context.Context, userID string, limit int) ([]Entry, error)
}
