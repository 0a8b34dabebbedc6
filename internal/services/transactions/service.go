// Package transactions is the deposit/withdraw state machine.
// PENDING is the only non-terminal status; balances move on approval only.
package transactions

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/fastprodman/wagerengine/internal/accounts"
	"github.com/fastprodman/wagerengine/internal/infra/metrics"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/infra/tracing"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
	pgtransactions "github.com/fastprodman/wagerengine/internal/repos/transactions/postgres"
	"github.com/fastprodman/wagerengine/internal/services/authority"
	"github.com/fastprodman/wagerengine/internal/services/ledger"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

const listLimit = 200

var tracer = tracing.Tracer("services/transactions")

type Deps struct {
	Ledger    *ledger.Ledger
	Accounts  accounts.Client
	Authority authority.Authority
	Publisher notify.Publisher
	Metrics   *metrics.Metrics
	Retry     pgutils.RetryPolicy
	// Denomination is the unit every requested amount must be a multiple of.
	Denomination int64
}

type Service struct {
	db   *sql.DB
	txns transactions.Transactions
	Deps
}

func New(db *sql.DB, deps Deps) *Service {
	return &Service{
		db:   db,
		txns: pgtransactions.New(db),
		Deps: deps,
	}
}

func (s *Service) Get(ctx context.Context, id string) (Transaction, error) {
	if uuid.Validate(id) != nil {
		return Transaction{}, ErrNotFound
	}

	t, err := s.txns.Get(ctx, id)
	if err != nil {
		return Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	return t, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Transaction, error) {
	out, err := s.txns.ListByUser(ctx, userID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	return out, nil
}
