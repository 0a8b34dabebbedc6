package wagers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/wagers"
)

func (r *wagersRepo) LockPool(ctx context.Context, tx *sql.Tx, amount int64, mode string) error {
	key := fmt.Sprintf("wager-pool:%s:%d", mode, amount)

	_, err := tx.ExecContext(ctx, `
		SELECT pg_advisory_xact_lock(hashtextextended($1, 0))
	`, key)
	if err != nil {
		return fmt.Errorf("lock wager pool: %w", err)
	}

	return nil
}

func (r *wagersRepo) FindCandidate(ctx context.Context, tx *sql.Tx, w wagers.Wager) (wagers.Wager, error) {
	c, err := scanWager(tx.QueryRowContext(ctx, `
		SELECT `+wagerColumns+`
		FROM wagers
		WHERE status = 'PENDING'
		  AND amount = $1
		  AND mode = $2
		  AND player1_id <> $3
		  AND id <> $4::uuid
		ORDER BY seq
		LIMIT 1
		FOR UPDATE
	`, w.Amount, w.Mode, w.Player1ID, w.ID))
	if errors.Is(err, sql.ErrNoRows) {
		return wagers.Wager{}, wagers.ErrNotFound
	}
	if err != nil {
		return wagers.Wager{}, fmt.Errorf("find pairing candidate: %w", err)
	}

	return c, nil
}

func (r *wagersRepo) MarkMatched(ctx context.Context, tx *sql.Tx, id, opponentID, matchID string) (wagers.Wager, error) {
	w, err := scanWager(tx.QueryRowContext(ctx, `
		UPDATE wagers
		SET status     = 'MATCHED',
		    player2_id = $2,
		    match_id   = $3::uuid,
		    updated_at = now()
		WHERE id = $1::uuid
		  AND status = 'PENDING'
		RETURNING `+wagerColumns,
		id, opponentID, matchID))
	if errors.Is(err, sql.ErrNoRows) {
		return wagers.Wager{}, wagers.ErrStatusChanged
	}
	if err != nil {
		return wagers.Wager{}, fmt.Errorf("mark wager matched: %w", err)
	}

	return w, nil
}
