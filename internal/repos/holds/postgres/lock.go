package holds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/holds"
)

func (r *holdsRepo) Lock(ctx context.Context, tx *sql.Tx, id string) (holds.Hold, error) {
	h, err := scanHold(tx.QueryRowContext(ctx, `
		SELECT `+holdColumns+`
		FROM holds
		WHERE id = $1
		FOR UPDATE
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return holds.Hold{}, holds.ErrNotFound
	}
	if err != nil {
		return holds.Hold{}, fmt.Errorf("lock hold: %w", err)
	}

	return h, nil
}
