package matches

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/matches"
)

func (r *matchesRepo) Get(ctx context.Context, id string) (matches.Match, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE id = $1::uuid
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return matches.Match{}, matches.ErrNotFound
	}
	if err != nil {
		return matches.Match{}, fmt.Errorf("get match: %w", err)
	}

	return m, nil
}

func (r *matchesRepo) Lock(ctx context.Context, tx *sql.Tx, id string) (matches.Match, error) {
	m, err := scanMatch(tx.QueryRowContext(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE id = $1::uuid
		FOR UPDATE
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return matches.Match{}, matches.ErrNotFound
	}
	if err != nil {
		return matches.Match{}, fmt.Errorf("lock match: %w", err)
	}

	return m, nil
}
