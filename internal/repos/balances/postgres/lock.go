package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/balances"
)

func (r *balancesRepo) Lock(ctx context.Context, tx *sql.Tx, userID string) (balances.Balance, error) {
	b, err := scanBalance(tx.QueryRowContext(ctx, `
		SELECT `+balanceColumns+`
		FROM balances
		WHERE user_id = $1
		FOR UPDATE
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return balances.Balance{}, balances.ErrNotFound
	}
	if err != nil {
		return balances.Balance{}, fmt.Errorf("lock balance: %w", err)
	}

	return b, nil
}
