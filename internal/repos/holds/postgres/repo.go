package holds

import (
	"database/sql"

	"github.com/fastprodman/wagerengine/internal/repos/holds"
)

var _ holds.Holds = (*holdsRepo)(nil)

type holdsRepo struct{ db *sql.DB }

func New(db *sql.DB) *holdsRepo {
	return &holdsRepo{db: db}
}

const holdColumns = `id, user_id, amount, status, reason,
	COALESCE(destination, ''), COALESCE(beneficiary_id, ''),
	COALESCE(credited, 0), COALESCE(fee, 0), created_at, released_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHold(row rowScanner) (holds.Hold, error) {
	var (
		h          holds.Hold
		releasedAt sql.NullTime
	)

	err := row.Scan(&h.ID, &h.UserID, &h.Amount, &h.Status, &h.Reason,
		&h.Destination, &h.BeneficiaryID, &h.Credited, &h.Fee, &h.CreatedAt, &releasedAt)
	if err != nil {
		return holds.Hold{}, err
	}

	if releasedAt.Valid {
		h.ReleasedAt = &releasedAt.Time
	}

	return h, nil
}
