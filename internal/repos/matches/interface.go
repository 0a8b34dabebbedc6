package matches

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/wagerengine/internal/errs"
)

var (
	ErrNotFound = fmt.Errorf("match: %w", errs.ErrNotFound)
	// ErrStateChanged reports a lost compare-and-swap on the match state.
	ErrStateChanged = fmt.Errorf("match state changed: %w", errs.ErrIllegalTransition)
)

type State string

const (
	StateAwaiting State = "AWAITING_DECLARATIONS"
	StateSettling State = "SETTLING"
	StateSettled  State = "SETTLED"
	StateDisputed State = "DISPUTED"
)

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

// Match pairs two wagers. Wager1 is the one that waited longer.
type Match struct {
	ID             string     `json:"id"`
	Wager1ID       string     `json:"wager1Id"`
	Wager2ID       string     `json:"wager2Id"`
	Player1ID      string     `json:"player1Id"`
	Player2ID      string     `json:"player2Id"`
	Amount         int64      `json:"amount"`
	Commission     int64      `json:"commission"`
	Mode           string     `json:"mode"`
	State          State      `json:"state"`
	DisputeReason  string     `json:"disputeReason,omitempty"`
	WinnerID       string     `json:"winnerId,omitempty"`
	Draw           bool       `json:"draw"`
	AdjudicatorID  string     `json:"adjudicatorId,omitempty"`
	PayoutTxID     string     `json:"payoutTxId,omitempty"`
	ResultDeadline time.Time  `json:"resultDeadline"`
	CreatedAt      time.Time  `json:"createdAt"`
	SettledAt      *time.Time `json:"settledAt,omitempty"`
}

func (m Match) HasPlayer(id string) bool {
	return id != "" && (m.Player1ID == id || m.Player2ID == id)
}

// WagerOf returns the wager staked by player.
func (m Match) WagerOf(player string) string {
	if m.Player1ID == player {
		return m.Wager1ID
	}
	return m.Wager2ID
}

type Declaration struct {
	MatchID     string    `json:"matchId"`
	PlayerID    string    `json:"playerId"`
	Outcome     Outcome   `json:"outcome"`
	EvidenceRef string    `json:"evidenceRef,omitempty"`
	DeclaredAt  time.Time `json:"declaredAt"`
}

type Matches interface {
	Insert(ctx context.Context, tx *sql.Tx, m Match) (Match, error)
	Get(ctx context.Context, id string) (Match, error)
	Lock(ctx context.Context, tx *sql.Tx, id string) (Match, error)
	// Update writes the mutable columns of m if its stored state is still from.
	Update(ctx context.Context, tx *sql.Tx, m Match, from State) (Match, error)

	// UpsertDeclaration replaces any earlier declaration by the same player.
	UpsertDeclaration(ctx context.Context, tx *sql.Tx, d Declaration) error
	Declarations(ctx context.Context, tx *sql.Tx, matchID string) ([]Declaration, error)
	ListDeclarations(ctx context.Context, matchID string) ([]Declaration, error)

	// LockOverdue locks AWAITING_DECLARATIONS matches past their deadline.
	LockOverdue(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]Match, error)
	ListIDsInState(ctx context.Context, state State, limit int) ([]string, error)
}
