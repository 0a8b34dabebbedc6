package wagers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/wagerengine/internal/errs"
)

var (
	ErrDuplicateWager = errors.New("duplicate wager request")
	ErrNotFound       = fmt.Errorf("wager: %w", errs.ErrNotFound)
	// ErrStatusChanged reports a lost compare-and-swap on the wager status.
	ErrStatusChanged = fmt.Errorf("wager status changed: %w", errs.ErrIllegalTransition)
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusMatched    Status = "MATCHED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSettled    Status = "SETTLED"
	StatusCancelled  Status = "CANCELLED"
)

// Wager is one player's stake. Player1ID owns it; Player2ID is the opponent
// once matched.
type Wager struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"-"`
	Player1ID string    `json:"player1Id"`
	Player2ID string    `json:"player2Id,omitempty"`
	Amount    int64     `json:"amount"`
	Mode      string    `json:"mode"`
	Status    Status    `json:"status"`
	HoldID    string    `json:"holdId"`
	MatchID   string    `json:"matchId,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Wagers interface {
	// Insert returns ErrDuplicateWager when the request id was already used.
	Insert(ctx context.Context, tx *sql.Tx, w Wager) (Wager, error)
	Get(ctx context.Context, id string) (Wager, error)
	GetByRequestID(ctx context.Context, requestID string) (Wager, error)
	Lock(ctx context.Context, tx *sql.Tx, id string) (Wager, error)
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]Wager, error)

	// LockPool takes the transaction-scoped pairing lock for (amount, mode).
	LockPool(ctx context.Context, tx *sql.Tx, amount int64, mode string) error
	// FindCandidate locks the oldest PENDING wager compatible with w that
	// belongs to another player. A row locked elsewhere is waited for and
	// skipped only if it is no longer PENDING once released.
	FindCandidate(ctx context.Context, tx *sql.Tx, w Wager) (Wager, error)
	MarkMatched(ctx context.Context, tx *sql.Tx, id, opponentID, matchID string) (Wager, error)

	// SetStatus is a compare-and-swap from one of the given statuses.
	SetStatus(ctx context.Context, tx *sql.Tx, id string, to Status, from ...Status) (Wager, error)
	// StartSession moves both MATCHED wagers of a match to IN_PROGRESS.
	StartSession(ctx context.Context, tx *sql.Tx, matchID, sessionID string) (int64, error)
	// CloseMatch moves both live wagers of a match to SETTLED.
	CloseMatch(ctx context.Context, tx *sql.Tx, matchID string) (int64, error)

	// LockExpiredPending locks PENDING wagers created before cutoff.
	LockExpiredPending(ctx context.Context, tx *sql.Tx, cutoff time.Time, limit int) ([]Wager, error)
	ListPending(ctx context.Context, limit int) ([]Wager, error)
}
