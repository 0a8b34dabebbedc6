package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
)

func (r *transactionsRepo) Insert(ctx context.Context, tx *sql.Tx, t transactions.Transaction) (transactions.Transaction, error) {
	out, err := scanTransaction(tx.QueryRowContext(ctx, `
		INSERT INTO transactions (id, user_id, amount, kind, status, request_id, match_id, approver_id, reason, finalized_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, '')::uuid, NULLIF($8, ''), NULLIF($9, ''),
		        CASE WHEN $5 = 'PENDING' THEN NULL ELSE now() END)
		RETURNING `+txColumns,
		t.ID, t.UserID, t.Amount, t.Kind, t.Status, t.RequestID, t.MatchID, t.ApproverID, t.Reason))
	if err != nil {
		if pgutils.IsUniqueViolation(err) {
			return transactions.Transaction{}, transactions.ErrDuplicateTransaction
		}

		return transactions.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	return out, nil
}
