package wagers

import (
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/wagerengine/internal/infra/pgtestutil"
	"github.com/fastprodman/wagerengine/internal/infra/pgutils"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
)

// queue inserts a PENDING wager with the hold and balance rows it references.
func queue(t *testing.T, db *sql.DB, repo *wagersRepo, player, mode string) wagers.Wager {
	t.Helper()

	holdID := uuid.NewString()
	_, err := db.Exec(`INSERT INTO balances (user_id, escrowed) VALUES ($1, 6000)
		ON CONFLICT (user_id) DO UPDATE SET escrowed = balances.escrowed + 6000`, player)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO holds (id, user_id, amount, status, reason) VALUES ($1, $2, 6000, 'ACTIVE', 'test')`,
		holdID, player)
	require.NoError(t, err)

	var w wagers.Wager
	err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
		var err error
		w, err = repo.Insert(t.Context(), tx, wagers.Wager{
			ID: uuid.NewString(), Player1ID: player, Amount: 6000, Mode: mode,
			Status: wagers.StatusPending, HoldID: holdID,
		})
		return err
	})
	require.NoError(t, err)

	return w
}

type found struct {
	w   wagers.Wager
	err error
}

func findAsync(t *testing.T, db *sql.DB, repo *wagersRepo, own wagers.Wager) <-chan found {
	t.Helper()

	out := make(chan found, 1)
	go func() {
		var r found
		r.err = pgutils.WithTx(t.Context(), db, func(tx *sql.Tx) error {
			var err error
			r.w, err = repo.FindCandidate(t.Context(), tx, own)
			return err
		})
		out <- r
	}()

	return out
}

func TestWagers_FindCandidate(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	repo := New(db)
	ctx := t.Context()

	own := queue(t, db, repo, "alice", "classic")
	_ = queue(t, db, repo, "bob", "triple-draft")
	oldest := queue(t, db, repo, "carol", "classic")
	_ = queue(t, db, repo, "dave", "classic")

	t.Run("oldest compatible of another player", func(t *testing.T) {
		err := pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
			got, err := repo.FindCandidate(ctx, tx, own)
			require.NoError(t, err)
			assert.Equal(t, oldest.ID, got.ID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("waits for a locked row instead of jumping the queue", func(t *testing.T) {
		holder, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		_, err = repo.Lock(ctx, holder, oldest.ID)
		require.NoError(t, err)

		res := findAsync(t, db, repo, own)
		select {
		case <-res:
			t.Fatal("candidate returned while the oldest row was locked")
		case <-time.After(200 * time.Millisecond):
		}

		require.NoError(t, holder.Commit())
		r := <-res
		require.NoError(t, r.err)
		assert.Equal(t, oldest.ID, r.w.ID)
	})

	t.Run("skips a row cancelled while locked", func(t *testing.T) {
		holder, err := db.BeginTx(ctx, nil)
		require.NoError(t, err)
		_, err = repo.Lock(ctx, holder, oldest.ID)
		require.NoError(t, err)

		res := findAsync(t, db, repo, own)

		_, err = repo.SetStatus(ctx, holder, oldest.ID, wagers.StatusCancelled, wagers.StatusPending)
		require.NoError(t, err)
		require.NoError(t, holder.Commit())

		r := <-res
		require.NoError(t, r.err)
		assert.Equal(t, "dave", r.w.Player1ID)
	})

	t.Run("never the same player", func(t *testing.T) {
		solo := queue(t, db, repo, "erin", "blitz")
		_ = queue(t, db, repo, "erin", "blitz")

		err := pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
			_, err := repo.FindCandidate(ctx, tx, solo)
			require.ErrorIs(t, err, wagers.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestWagers_MarkMatchedIsCompareAndSwap(t *testing.T) {
	t.Parallel()

	db := pgtestutil.NewTestDB(t)
	repo := New(db)
	ctx := t.Context()

	w := queue(t, db, repo, "alice", "classic")
	matchID := uuid.NewString()

	err := pgutils.WithTx(ctx, db, func(tx *sql.Tx) error {
		got, err := repo.MarkMatched(ctx, tx, w.ID, "bob", matchID)
		require.NoError(t, err)
		assert.Equal(t, wagers.StatusMatched, got.Status)
		assert.Equal(t, "bob", got.Player2ID)
		assert.Equal(t, matchID, got.MatchID)

		_, err = repo.MarkMatched(ctx, tx, w.ID, "carol", uuid.NewString())
		require.ErrorIs(t, err, wagers.ErrStatusChanged)

		_, err = repo.SetStatus(ctx, tx, w.ID, wagers.StatusCancelled, wagers.StatusPending)
		require.ErrorIs(t, err, wagers.ErrStatusChanged)
		return nil
	})
	require.NoError(t, err)
}
