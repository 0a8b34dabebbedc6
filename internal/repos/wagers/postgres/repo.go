package wagers

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/wagers"
)

var _ wagers.Wagers = (*wagersRepo)(nil)

type wagersRepo struct{ db *sql.DB }

func New(db *sql.DB) *wagersRepo {
	return &wagersRepo{db: db}
}

const wagerColumns = `id, seq, player1_id, COALESCE(player2_id, ''), amount, mode, status, hold_id,
	COALESCE(match_id::text, ''), COALESCE(session_id::text, ''), COALESCE(request_id, ''),
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWager(row rowScanner) (wagers.Wager, error) {
	var w wagers.Wager
	err := row.Scan(&w.ID, &w.Seq, &w.Player1ID, &w.Player2ID, &w.Amount, &w.Mode, &w.Status, &w.HoldID,
		&w.MatchID, &w.SessionID, &w.RequestID, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryWagers(ctx context.Context, q queryer, query string, args ...any) ([]wagers.Wager, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]wagers.Wager, 0)
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wager: %w", err)
		}
		out = append(out, w)
	}

	return out, rows.Err()
}
