package wagers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
)

func (r *wagersRepo) Insert(ctx context.Context, tx *sql.Tx, w wagers.Wager) (wagers.Wager, error) {
	out, err := scanWager(tx.QueryRowContext(ctx, `
		INSERT INTO wagers (id, player1_id, amount, mode, status, hold_id, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
		RETURNING `+wagerColumns,
		w.ID, w.Player1ID, w.Amount, w.Mode, w.Status, w.HoldID, w.RequestID))
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return wagers.Wager{}, wagers.ErrDuplicateWager
		}

		return wagers.Wager{}, fmt.Errorf("insert wager: %w", err)
	}

	return out, nil
}
