package matches

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fastprodman/wagerengine/internal/repos/matches"
)

func (r *matchesRepo) LockOverdue(ctx context.Context, tx *sql.Tx, now time.Time, limit int) ([]matches.Match, error) {
	out, err := queryMatches(ctx, tx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE state = 'AWAITING_DECLARATIONS'
		  AND result_deadline < $1
		ORDER BY result_deadline
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("lock overdue matches: %w", err)
	}

	return out, nil
}

func (r *matchesRepo) ListIDsInState(ctx context.Context, state matches.State, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id
		FROM matches
		WHERE state = $1
		ORDER BY created_at
		LIMIT $2
	`, state, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches in state: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan match id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
