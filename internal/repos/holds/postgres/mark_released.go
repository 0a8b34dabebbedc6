package holds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/holds"
)

func (r *holdsRepo) MarkReleased(ctx context.Context, tx *sql.Tx, h holds.Hold) (holds.Hold, error) {
	out, err := scanHold(tx.QueryRowContext(ctx, `
		UPDATE holds
		SET status         = 'RELEASED',
		    destination    = $2,
		    beneficiary_id = NULLIF($3, ''),
		    credited       = $4,
		    fee            = $5,
		    released_at    = now()
		WHERE id = $1
		  AND status = 'ACTIVE'
		RETURNING `+holdColumns,
		h.ID, h.Destination, h.BeneficiaryID, h.Credited, h.Fee))
	if errors.Is(err, sql.ErrNoRows) {
		return holds.Hold{}, fmt.Errorf("hold %s is not active: %w", h.ID, holds.ErrNotFound)
	}
	if err != nil {
		return holds.Hold{}, fmt.Errorf("mark hold released: %w", err)
	}

	return out, nil
}
