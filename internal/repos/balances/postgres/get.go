package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/balances"
)

func (r *balancesRepo) Get(ctx context.Context, userID string) (balances.Balance, error) {
	b, err := scanBalance(r.db.QueryRowContext(ctx, `
		SELECT `+balanceColumns+`
		FROM balances
		WHERE user_id = $1
	`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return balances.Balance{}, balances.ErrNotFound
	}
	if err != nil {
		return balances.Balance{}, fmt.Errorf("get balance: %w", err)
	}

	return b, nil
}
