package matches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/matches"
)

func (r *matchesRepo) Update(ctx context.Context, tx *sql.Tx, m matches.Match, from matches.State) (matches.Match, error) {
	out, err := scanMatch(tx.QueryRowContext(ctx, `
		UPDATE matches
		SET state          = $2,
		    dispute_reason = NULLIF($3, ''),
		    winner_id      = NULLIF($4, ''),
		    draw           = $5,
		    adjudicator_id = NULLIF($6, ''),
		    payout_tx_id   = NULLIF($7, '')::uuid,
		    settled_at     = CASE WHEN $2 = 'SETTLED' THEN now() ELSE settled_at END
		WHERE id = $1::uuid
		  AND state = $8
		RETURNING `+matchColumns,
		m.ID, m.State, m.DisputeReason, m.WinnerID, m.Draw, m.AdjudicatorID, m.PayoutTxID, from))
	if errors.Is(err, sql.ErrNoRows) {
		return matches.Match{}, matches.ErrStateChanged
	}
	if err != nil {
		return matches.Match{}, fmt.Errorf("update match: %w", err)
	}

	return out, nil
}
