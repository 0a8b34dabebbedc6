package holds

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/holds"
)

func (r *holdsRepo) Insert(ctx context.Context, tx *sql.Tx, h holds.Hold) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO holds (id, user_id, amount, status, reason)
		VALUES ($1, $2, $3, $4, $5)
	`, h.ID, h.UserID, h.Amount, h.Status, h.Reason)
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}

	return nil
}
