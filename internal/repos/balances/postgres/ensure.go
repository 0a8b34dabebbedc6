package balances

import (
	"context"
	"database/sql"
	"fmt"
)

func (r *balancesRepo) Ensure(ctx context.Context, tx *sql.Tx, userID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO balances (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("ensure balance: %w", err)
	}

	return nil
}
