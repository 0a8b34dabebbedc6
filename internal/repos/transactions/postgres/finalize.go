package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/transactions"
)

func (r *transactionsRepo) Finalize(ctx context.Context, tx *sql.Tx, id string, f transactions.Final) (transactions.Transaction, error) {
	t, err := scanTransaction(tx.QueryRowContext(ctx, `
		UPDATE transactions
		SET status       = $2,
		    approver_id  = NULLIF($3, ''),
		    reason       = NULLIF($4, ''),
		    finalized_at = now()
		WHERE id = $1::uuid
		  AND status = 'PENDING'
		RETURNING `+txColumns,
		id, f.Status, f.ApproverID, f.Reason))
	if errors.Is(err, sql.ErrNoRows) {
		return transactions.Transaction{}, transactions.ErrNotPending
	}
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("finalize transaction: %w", err)
	}

	return t, nil
}
