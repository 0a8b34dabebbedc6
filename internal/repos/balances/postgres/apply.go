package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/balances"
)

func (r *balancesRepo) Apply(ctx context.Context, tx *sql.Tx, userID string, dAvailable, dEscrowed int64) (balances.Balance, error) {
	b, err := scanBalance(tx.QueryRowContext(ctx, `
		UPDATE balances
		SET available  = available + $2,
		    escrowed   = escrowed + $3,
		    version    = version + 1,
		    updated_at = now()
		WHERE user_id = $1
		  AND available + $2 >= 0
		  AND escrowed + $3 >= 0
		RETURNING `+balanceColumns,
		userID, dAvailable, dEscrowed))
	if errors.Is(err, sql.ErrNoRows) {
		// a missing row holds nothing, so it is treated like an empty balance
		return balances.Balance{}, balances.ErrInsufficientFunds
	}
	if err != nil {
		return balances.Balance{}, fmt.Errorf("apply balance delta: %w", err)
	}

	return b, nil
}
