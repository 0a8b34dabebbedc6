package matches

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/matches"
)

var _ matches.Matches = (*matchesRepo)(nil)

type matchesRepo struct{ db *sql.DB }

func New(db *sql.DB) *matchesRepo {
	return &matchesRepo{db: db}
}

const matchColumns = `id, wager1_id, wager2_id, player1_id, player2_id, amount, commission, mode, state,
	COALESCE(dispute_reason, ''), COALESCE(winner_id, ''), draw, COALESCE(adjudicator_id, ''),
	COALESCE(payout_tx_id::text, ''), result_deadline, created_at, settled_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (matches.Match, error) {
	var (
		m         matches.Match
		settledAt sql.NullTime
	)

	err := row.Scan(&m.ID, &m.Wager1ID, &m.Wager2ID, &m.Player1ID, &m.Player2ID, &m.Amount, &m.Commission,
		&m.Mode, &m.State, &m.DisputeReason, &m.WinnerID, &m.Draw, &m.AdjudicatorID, &m.PayoutTxID,
		&m.ResultDeadline, &m.CreatedAt, &settledAt)
	if err != nil {
		return matches.Match{}, err
	}

	if settledAt.Valid {
		m.SettledAt = &settledAt.Time
	}

	return m, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryMatches(ctx context.Context, q queryer, query string, args ...any) ([]matches.Match, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]matches.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}

	return out, rows.Err()
}
