package matches

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/matches"
)

func (r *matchesRepo) Insert(ctx context.Context, tx *sql.Tx, m matches.Match) (matches.Match, error) {
	out, err := scanMatch(tx.QueryRowContext(ctx, `
		INSERT INTO matches (id, wager1_id, wager2_id, player1_id, player2_id, amount, commission, mode, state, result_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+matchColumns,
		m.ID, m.Wager1ID, m.Wager2ID, m.Player1ID, m.Player2ID, m.Amount, m.Commission, m.Mode, m.State, m.ResultDeadline))
	if err != nil {
		return matches.Match{}, fmt.Errorf("insert match: %w", err)
	}

	return out, nil
}
