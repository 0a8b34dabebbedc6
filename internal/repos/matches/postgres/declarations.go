package matches

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/matches"
)

func (r *matchesRepo) UpsertDeclaration(ctx context.Context, tx *sql.Tx, d matches.Declaration) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO declarations (match_id, player_id, outcome, evidence_ref)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (match_id, player_id) DO UPDATE
		SET outcome      = EXCLUDED.outcome,
		    evidence_ref = EXCLUDED.evidence_ref,
		    declared_at  = now()
	`, d.MatchID, d.PlayerID, d.Outcome, d.EvidenceRef)
	if err != nil {
		return fmt.Errorf("upsert declaration: %w", err)
	}

	return nil
}

func (r *matchesRepo) Declarations(ctx context.Context, tx *sql.Tx, matchID string) ([]matches.Declaration, error) {
	return listDeclarations(ctx, tx, matchID)
}

func (r *matchesRepo) ListDeclarations(ctx context.Context, matchID string) ([]matches.Declaration, error) {
	return listDeclarations(ctx, r.db, matchID)
}

func listDeclarations(ctx context.Context, q queryer, matchID string) ([]matches.Declaration, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT match_id, player_id, outcome, COALESCE(evidence_ref, ''), declared_at
		FROM declarations
		WHERE match_id = $1::uuid
		ORDER BY declared_at, player_id
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list declarations: %w", err)
	}
	//nolint:errcheck
	defer rows.Close()

	out := make([]matches.Declaration, 0, 2)
	for rows.Next() {
		var d matches.Declaration
		err := rows.Scan(&d.MatchID, &d.PlayerID, &d.Outcome, &d.EvidenceRef, &d.DeclaredAt)
		if err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate declarations: %w", err)
	}

	return out, nil
}
