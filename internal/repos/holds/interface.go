package holds

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/wagerengine/internal/errs"
)

var ErrNotFound = fmt.Errorf("hold: %w", errs.ErrNotFound)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusReleased Status = "RELEASED"
)

type Destination string

const (
	// DestinationOwner returns the escrow to the user who placed it.
	DestinationOwner Destination = "OWNER"
	// DestinationOther forfeits the escrow to a beneficiary, net of a fee.
	DestinationOther Destination = "OTHER"
	// DestinationSplit returns part of the escrow to the owner and the rest
	// to a beneficiary, net of a fee.
	DestinationSplit Destination = "SPLIT"
)

// Hold is an escrow token. Once released it records where the funds went
// so a repeated release can report the original outcome.
type Hold struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Amount        int64       `json:"amount"`
	Status        Status      `json:"status"`
	Reason        string      `json:"reason"`
	Destination   Destination `json:"destination,omitempty"`
	BeneficiaryID string      `json:"beneficiaryId,omitempty"`
	Credited      int64       `json:"credited"`
	Fee           int64       `json:"fee"`
	CreatedAt     time.Time   `json:"createdAt"`
	ReleasedAt    *time.Time  `json:"releasedAt,omitempty"`
}

type Holds interface {
	Insert(ctx context.Context, tx *sql.Tx, h Hold) error
	Lock(ctx context.Context, tx *sql.Tx, id string) (Hold, error)
	// MarkReleased records where the funds of an ACTIVE hold went.
	MarkReleased(ctx context.Context, tx *sql.Tx, h Hold) (Hold, error)
}
