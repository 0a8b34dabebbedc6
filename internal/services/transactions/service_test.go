package transactions

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/wagerengine/internal/accounts"
	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/infra/metrics"
	"github.com/fastprodman/wagerengine/internal/infra/pgtestutil"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	balancespg "github.com/fastprodman/wagerengine/internal/repos/balances/postgres"
	holdspg "github.com/fastprodman/wagerengine/internal/repos/holds/postgres"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
	"github.com/fastprodman/wagerengine/internal/services/authority"
	"github.com/fastprodman/wagerengine/internal/services/ledger"
	"github.com/fastprodman/wagerengine/internal/services/notify"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(_ context.Context, events ...notify.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *recorder) count(typ notify.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func testDeps(db *sql.DB, pub notify.Publisher) Deps {
	return Deps{
		Ledger:       ledger.New(balancespg.New(db), holdspg.New(db), "house"),
		Accounts:     accounts.Nop{},
		Authority:    authority.NewAdminSet("admin"),
		Publisher:    pub,
		Metrics:      metrics.NewUnregistered(),
		Retry:        pgutils.DefaultRetryPolicy,
		Denomination: 1000,
	}
}

func TestRequestTransaction_Validation(t *testing.T) {
	t.Parallel()

	s := New(nil, testDeps(nil, notify.Nop{}))

	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing_user", req: Request{Amount: 1000, Kind: transactions.KindDeposit}},
		{name: "zero_amount", req: Request{UserID: "u", Amount: 0, Kind: transactions.KindDeposit}},
		{name: "negative_amount", req: Request{UserID: "u", Amount: -1000, Kind: transactions.KindDeposit}},
		{name: "off_denomination", req: Request{UserID: "u", Amount: 1500, Kind: transactions.KindDeposit}},
		{name: "payout_by_user", req: Request{UserID: "u", Amount: 1000, Kind: transactions.KindPayout}},
		{name: "unknown_kind", req: Request{UserID: "u", Amount: 1000, Kind: "GIFT"}},
		{name: "house_account", req: Request{UserID: "house", Amount: 1000, Kind: transactions.KindDeposit}},
		{name: "above_max_amount", req: Request{UserID: "u", Amount: MaxAmount + 1000, Kind: transactions.KindDeposit}},
		{name: "near_int64_max", req: Request{UserID: "u", Amount: 9223372036854775000, Kind: transactions.KindDeposit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := s.RequestTransaction(context.Background(), tt.req)
			assert.ErrorIs(t, err, errs.ErrValidation)
		})
	}
}

func newTestService(t *testing.T) (*Service, *recorder) {
	t.Helper()

	db := pgtestutil.NewTestDB(t)
	rec := &recorder{}
	return New(db, testDeps(db, rec)), rec
}

func deposit(t *testing.T, s *Service, userID string, amount int64) {
	t.Helper()

	tx, err := s.RequestTransaction(t.Context(), Request{UserID: userID, Amount: amount, Kind: transactions.KindDeposit})
	require.NoError(t, err)
	_, err = s.ApproveTransaction(t.Context(), tx.ID, "admin")
	require.NoError(t, err)
}

func TestApproveDeposit_ConcurrentApprovesApplyOnce(t *testing.T) {
	t.Parallel()

	s, rec := newTestService(t)
	ctx := t.Context()

	tx, err := s.RequestTransaction(ctx, Request{UserID: "alice", Amount: 6000, Kind: transactions.KindDeposit})
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusPending, tx.Status)

	const callers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		approved  int
		finalized int
	)

	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.ApproveTransaction(context.Background(), tx.ID, "admin")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				approved++
			case errors.Is(err, ErrAlreadyFinalized):
				finalized++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, approved)
	assert.Equal(t, callers-1, finalized)

	b, err := s.Ledger.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(6000), b.Available)

	assert.Equal(t, 1, rec.count(notify.EventTransactionFinalized))
	assert.Equal(t, 1, rec.count(notify.EventBalanceChanged))
}

func TestFinalize_SecondTransitionFails(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	ctx := t.Context()

	tx, err := s.RequestTransaction(ctx, Request{UserID: "bob", Amount: 2000, Kind: transactions.KindDeposit})
	require.NoError(t, err)

	got, err := s.ApproveTransaction(ctx, tx.ID, "admin")
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusApproved, got.Status)
	assert.Equal(t, "admin", got.ApproverID)
	assert.NotNil(t, got.FinalizedAt)

	_, err = s.ApproveTransaction(ctx, tx.ID, "admin")
	require.ErrorIs(t, err, ErrAlreadyFinalized)
	require.ErrorIs(t, err, errs.ErrIllegalTransition)

	_, err = s.RejectTransaction(ctx, tx.ID, "admin", "changed my mind")
	require.ErrorIs(t, err, ErrAlreadyFinalized)

	b, err := s.Ledger.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), b.Available)
}

func TestApproveWithdraw_AutoRejectsWhenFundsWereSpent(t *testing.T) {
	t.Parallel()

	s, rec := newTestService(t)
	ctx := t.Context()

	deposit(t, s, "carol", 6000)

	wd, err := s.RequestTransaction(ctx, Request{UserID: "carol", Amount: 6000, Kind: transactions.KindWithdraw})
	require.NoError(t, err)

	// funds get staked between request and approval
	err = pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, _, err := s.Ledger.Hold(ctx, tx, "carol", 6000, "wager")
		return err
	})
	require.NoError(t, err)

	got, err := s.ApproveTransaction(ctx, wd.ID, "admin")
	require.ErrorIs(t, err, ErrAutoRejected)
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)
	assert.Equal(t, transactions.StatusRejected, got.Status)
	assert.Equal(t, ReasonInsufficientFunds, got.Reason)

	b, err := s.Ledger.Balance(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, int64(0), b.Available)
	assert.Equal(t, int64(6000), b.Escrowed)

	stored, err := s.Get(ctx, wd.ID)
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusRejected, stored.Status)
	assert.Equal(t, 2, rec.count(notify.EventTransactionFinalized))
}

func TestApproveWithdraw_Debits(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	ctx := t.Context()

	deposit(t, s, "dan", 5000)

	_, err := s.RequestTransaction(ctx, Request{UserID: "dan", Amount: 6000, Kind: transactions.KindWithdraw})
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)

	wd, err := s.RequestTransaction(ctx, Request{UserID: "dan", Amount: 3000, Kind: transactions.KindWithdraw})
	require.NoError(t, err)

	_, err = s.ApproveTransaction(ctx, wd.ID, "admin")
	require.NoError(t, err)

	b, err := s.Ledger.Balance(ctx, "dan")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), b.Available)
}

func TestApprove_RequiresAuthority(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	ctx := t.Context()

	tx, err := s.RequestTransaction(ctx, Request{UserID: "eve", Amount: 1000, Kind: transactions.KindDeposit})
	require.NoError(t, err)

	_, err = s.ApproveTransaction(ctx, tx.ID, "eve")
	require.ErrorIs(t, err, errs.ErrForbidden)

	_, err = s.ApproveTransaction(ctx, "not-a-uuid", "admin")
	require.ErrorIs(t, err, errs.ErrNotFound)

	stored, err := s.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, transactions.StatusPending, stored.Status)
}

func TestRequestTransaction_IdempotentByRequestID(t *testing.T) {
	t.Parallel()

	s, _ := newTestService(t)
	ctx := t.Context()

	req := Request{UserID: "fay", Amount: 1000, Kind: transactions.KindDeposit, RequestID: "req-1"}

	first, err := s.RequestTransaction(ctx, req)
	require.NoError(t, err)
	second, err := s.RequestTransaction(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	req.Amount = 2000
	_, err = s.RequestTransaction(ctx, req)
	require.ErrorIs(t, err, errs.ErrValidation)

	list, err := s.ListByUser(ctx, "fay")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
