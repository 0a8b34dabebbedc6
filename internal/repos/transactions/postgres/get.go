package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fastprodman/wagerengine/internal/repos/transactions"
)

func (r *transactionsRepo) Get(ctx context.Context, id string) (transactions.Transaction, error) {
	return r.getOne(ctx, `WHERE id = $1::uuid`, id)
}

func (r *transactionsRepo) GetByRequestID(ctx context.Context, requestID string) (transactions.Transaction, error) {
	return r.getOne(ctx, `WHERE request_id = $1`, requestID)
}

func (r *transactionsRepo) getOne(ctx context.Context, where string, arg string) (transactions.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		`+where, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return transactions.Transaction{}, transactions.ErrNotFound
	}
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return t, nil
}

func (r *transactionsRepo) Lock(ctx context.Context, tx *sql.Tx, id string) (transactions.Transaction, error) {
	t, err := scanTransaction(tx.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = $1::uuid
		FOR UPDATE
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return transactions.Transaction{}, transactions.ErrNotFound
	}
	if err != nil {
		return transactions.Transaction{}, fmt.Errorf("lock transaction: %w", err)
	}

	return t, nil
}
