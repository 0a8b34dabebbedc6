package transactions

import (
	"database/sql"

	"github.com/fastprodman/wagerengine/internal/repos/transactions"
)

var _ transactions.Transactions = (*transactionsRepo)(nil)

type transactionsRepo struct{ db *sql.DB }

func New(db *sql.DB) *transactionsRepo {
	return &transactionsRepo{db: db}
}

const txColumns = `id, user_id, amount, kind, status,
	COALESCE(request_id, ''), COALESCE(match_id::text, ''),
	COALESCE(approver_id, ''), COALESCE(reason, ''), created_at, finalized_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (transactions.Transaction, error) {
	var (
		t           transactions.Transaction
		finalizedAt sql.NullTime
	)

	err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Kind, &t.Status,
		&t.RequestID, &t.MatchID, &t.ApproverID, &t.Reason, &t.CreatedAt, &finalizedAt)
	if err != nil {
		return transactions.Transaction{}, err
	}

	if finalizedAt.Valid {
		t.FinalizedAt = &finalizedAt.Time
	}

	return t, nil
}
