package accounts

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/wagerengine/internal/errs"
)

func TestHTTPClient_GetUser(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/users/alice":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"alice","available":6000}`))
		case "/users/flaky":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)

	u, err := c.GetUser(t.Context(), "alice")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "alice", Available: 6000}, u)

	_, err = c.GetUser(t.Context(), "ghost")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	calls.Store(0)
	_, err = c.GetUser(t.Context(), "flaky")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, int32(3), calls.Load(), "5xx is retried twice")
}

func TestNopAcceptsEveryone(t *testing.T) {
	t.Parallel()

	u, err := Nop{}.GetUser(t.Context(), "anyone")
	require.NoError(t, err)
	assert.Equal(t, "anyone", u.ID)
}
