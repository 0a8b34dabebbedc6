package pgutils

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/wagerengine/internal/errs"
)

// fakeDriver hands out connections whose transactions always begin, commit
// and roll back cleanly, so WithTxRetry can be driven by fn alone.
type fakeDriver struct {
	commits   atomic.Int32
	rollbacks atomic.Int32
}

func (d *fakeDriver) Open(string) (driver.Conn, error) { return &fakeConn{d: d}, nil }

type fakeConn struct{ d *fakeDriver }

func (c *fakeConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements are not supported")
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return fakeTx{d: c.d}, nil }

type fakeTx struct{ d *fakeDriver }

func (t fakeTx) Commit() error {
	t.d.commits.Add(1)
	return nil
}

func (t fakeTx) Rollback() error {
	t.d.rollbacks.Add(1)
	return nil
}

var fakeDrivers atomic.Int32

func newFakeDB(t *testing.T) (*sql.DB, *fakeDriver) {
	t.Helper()

	d := &fakeDriver{}
	name := fmt.Sprintf("pgutils-fake-%d", fakeDrivers.Add(1))
	sql.Register(name, d)

	db, err := sql.Open(name, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, d
}

var fastRetry = RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxTries: 5}

func TestWithTxRetry(t *testing.T) {
	t.Parallel()

	t.Run("retries serialization failures until fn succeeds", func(t *testing.T) {
		t.Parallel()

		db, d := newFakeDB(t)
		var calls int
		err := WithTxRetry(context.Background(), db, fastRetry, func(*sql.Tx) error {
			calls++
			if calls < 3 {
				return fmt.Errorf("apply: %w", &pgconn.PgError{Code: "40001"})
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, int32(1), d.commits.Load())
		assert.Equal(t, int32(2), d.rollbacks.Load())
	})

	t.Run("domain errors run fn once", func(t *testing.T) {
		t.Parallel()

		db, d := newFakeDB(t)
		var calls int
		err := WithTxRetry(context.Background(), db, fastRetry, func(*sql.Tx) error {
			calls++
			return fmt.Errorf("hold: %w", errs.ErrInsufficientFunds)
		})

		require.ErrorIs(t, err, errs.ErrInsufficientFunds)
		assert.Equal(t, 1, calls)
		assert.Zero(t, d.commits.Load())
	})

	t.Run("max tries bounds deadlock retries", func(t *testing.T) {
		t.Parallel()

		db, _ := newFakeDB(t)
		var calls int
		err := WithTxRetry(context.Background(), db, fastRetry, func(*sql.Tx) error {
			calls++
			return &pgconn.PgError{Code: "40P01"}
		})

		var pgErr *pgconn.PgError
		require.ErrorAs(t, err, &pgErr)
		assert.Equal(t, "40P01", pgErr.Code)
		assert.Equal(t, int(fastRetry.MaxTries), calls)
	})

	t.Run("single try", func(t *testing.T) {
		t.Parallel()

		db, _ := newFakeDB(t)
		var calls int
		err := WithTxRetry(context.Background(), db, RetryPolicy{MaxTries: 1}, func(*sql.Tx) error {
			calls++
			return &pgconn.PgError{Code: "40001"}
		})

		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
