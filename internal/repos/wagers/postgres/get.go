package wagers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/wagers"
)

func (r *wagersRepo) Get(ctx context.Context, id string) (wagers.Wager, error) {
	return r.getOne(ctx, `WHERE id = $1::uuid`, id)
}

func (r *wagersRepo) GetByRequestID(ctx context.Context, requestID string) (wagers.Wager, error) {
	return r.getOne(ctx, `WHERE request_id = $1`, requestID)
}

func (r *wagersRepo) getOne(ctx context.Context, where, arg string) (wagers.Wager, error) {
	w, err := scanWager(r.db.QueryRowContext(ctx, `
		SELECT `+wagerColumns+`
		FROM wagers
		`+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return wagers.Wager{}, wagers.ErrNotFound
	}
	if err != nil {
		return wagers.Wager{}, fmt.Errorf("get wager: %w", err)
	}

	return w, nil
}

func (r *wagersRepo) Lock(ctx context.Context, tx *sql.Tx, id string) (wagers.Wager, error) {
	w, err := scanWager(tx.QueryRowContext(ctx, `
		SELECT `+wagerColumns+`
		FROM wagers
		WHERE id = $1::uuid
		FOR UPDATE
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return wagers.Wager{}, wagers.ErrNotFound
	}
	if err != nil {
		return wagers.Wager{}, fmt.Errorf("lock wager: %w", err)
	}

	return w, nil
}

func (r *wagersRepo) ListByPlayer(ctx context.Context, playerID string, limit int) ([]wagers.Wager, error) {
	out, err := queryWagers(ctx, r.db, `
		SELECT `+wagerColumns+`
		FROM wagers
		WHERE player1_id = $1
		ORDER BY seq DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list wagers: %w", err)
	}

	return out, nil
}

func (r *wagersRepo) ListPending(ctx context.Context, limit int) ([]wagers.Wager, error) {
	out, err := queryWagers(ctx, r.db, `
		SELECT `+wagerColumns+`
		FROM wagers
		WHERE status = 'PENDING'
		ORDER BY seq
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending wagers: %w", err)
	}

	return out, nil
}
