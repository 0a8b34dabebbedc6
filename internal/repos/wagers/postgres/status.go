package wagers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fastprodman/wagerengine/internal/repos/wagers"
)

func (r *wagersRepo) SetStatus(ctx context.Context, tx *sql.Tx, id string, to wagers.Status, from ...wagers.Status) (wagers.Wager, error) {
	allowed := make([]string, len(from))
	for i, s := range from {
		allowed[i] = string(s)
	}

	w, err := scanWager(tx.QueryRowContext(ctx, `
		UPDATE wagers
		SET status     = $2,
		    updated_at = now()
		WHERE id = $1::uuid
		  AND status = ANY($3::text[])
		RETURNING `+wagerColumns,
		id, to, allowed))
	if errors.Is(err, sql.ErrNoRows) {
		return wagers.Wager{}, wagers.ErrStatusChanged
	}
	if err != nil {
		return wagers.Wager{}, fmt.Errorf("set wager status: %w", err)
	}

	return w, nil
}

func (r *wagersRepo) StartSession(ctx context.Context, tx *sql.Tx, matchID, sessionID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wagers
		SET status     = 'IN_PROGRESS',
		    session_id = $2::uuid,
		    updated_at = now()
		WHERE match_id = $1::uuid
		  AND status = 'MATCHED'
	`, matchID, sessionID)
	if err != nil {
		return 0, fmt.Errorf("start session: %w", err)
	}

	return res.RowsAffected()
}

func (r *wagersRepo) CloseMatch(ctx context.Context, tx *sql.Tx, matchID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE wagers
		SET status     = 'SETTLED',
		    updated_at = now()
		WHERE match_id = $1::uuid
		  AND status IN ('MATCHED', 'IN_PROGRESS')
	`, matchID)
	if err != nil {
		return 0, fmt.Errorf("close match wagers: %w", err)
	}

	return res.RowsAffected()
}

func (r *wagersRepo) LockExpiredPending(ctx context.Context, tx *sql.Tx, cutoff time.Time, limit int) ([]wagers.Wager, error) {
	out, err := queryWagers(ctx, tx, `
		SELECT `+wagerColumns+`
		FROM wagers
		WHERE status = 'PENDING'
		  AND created_at < $1
		ORDER BY seq
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("lock expired wagers: %w", err)
	}

	return out, nil
}
