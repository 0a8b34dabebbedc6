package balances

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/wagerengine/internal/infra/pgtestutil"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/balances"
)

func seed(t *testing.T, db *sql.DB, userID string, available, escrowed int64) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO balances (user_id, available, escrowed) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET available = EXCLUDED.available, escrowed = EXCLUDED.escrowed
	`, userID, available, escrowed)
	require.NoError(t, err, "seed balance %s", userID)
}

func TestBalances_Apply_Table(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	repo := New(db)

	tests := []struct {
		name          string
		user          string
		available     int64
		escrowed      int64
		seeded        bool
		dAvail, dEsc  int64
		wantErr       error
		wantAvailable int64
		wantEscrowed  int64
	}{
		{"credit", "u1", 100, 0, true, 50, 0, nil, 150, 0},
		{"hold exact", "u2", 300, 0, true, -300, 300, nil, 0, 300},
		{"hold over available", "u3", 200, 0, true, -300, 300, balances.ErrInsufficientFunds, 200, 0},
		{"release more than escrowed", "u4", 0, 100, true, 200, -200, balances.ErrInsufficientFunds, 0, 100},
		{"missing user", "ghost", 0, 0, false, -1, 0, balances.ErrInsufficientFunds, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.seeded {
				seed(t, db, tt.user, tt.available, tt.escrowed)
			}

			var got balances.Balance
			err := pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
				var err error
				got, err = repo.Apply(t.Context(), tx, tt.user, tt.dAvail, tt.dEsc)
				return err
			})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAvailable, got.Available)
				assert.Equal(t, tt.wantEscrowed, got.Escrowed)
			}

			if !tt.seeded {
				_, err := repo.Get(t.Context(), tt.user)
				require.ErrorIs(t, err, balances.ErrNotFound)
				return
			}

			b, err := repo.Get(t.Context(), tt.user)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAvailable, b.Available)
			assert.Equal(t, tt.wantEscrowed, b.Escrowed)
		})
	}
}

func TestBalances_Apply_ConcurrentNeverNegative(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	repo := New(db)
	seed(t, db, "shared", 1_000, 0)

	const workers = 20

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := pgutils.WithTx(context.Background(), db, func(tx *sql.Tx) error {
				_, err := repo.Apply(context.Background(), tx, "shared", -100, 0)
				return err
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !errors.Is(err, balances.ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)

	b, err := repo.Get(t.Context(), "shared")
	require.NoError(t, err)
	assert.Zero(t, b.Available)
	// every successful delta bumps the version once
	assert.Equal(t, int64(succeeded), b.Version)
}
