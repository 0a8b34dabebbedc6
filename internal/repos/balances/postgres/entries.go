package balances

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/balances"
)

func (r *balancesRepo) AppendEntry(ctx context.Context, tx *sql.Tx, e balances.Entry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (user_id, kind, d_available, d_escrowed, hold_id, reason)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6)
	`, e.UserID, e.Kind, e.DAvailable, e.DEscrowed, e.HoldID, e.Reason)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}

	return nil
}

func (r *balancesRepo) ListEntries(ctx context.Context, userID string, limit int) ([]balances.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, d_available, d_escrowed, COALESCE(hold_id::text, ''), reason, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY id
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var out []balances.Entry
	for rows.Next() {
		var e balances.Entry
		err = rows.Scan(&e.ID, &e.UserID, &e.Kind, &e.DAvailable, &e.DEscrowed, &e.HoldID, &e.Reason, &e.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		out = append(out, e)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}

	return out, nil
}

