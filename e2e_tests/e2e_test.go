//go:build e2e

// Package e2etests drives a running API (cmd/api with ENGINE_ADMIN_IDS
// including E2E_ADMIN_ID) over HTTP.
package e2etests

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	timeout   = 5 * time.Second
	waitReady = 20 * time.Second
)

var httpClient = &http.Client{Timeout: timeout}

func baseURL() string {
	if u := os.Getenv("E2E_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func adminID() string {
	if id := os.Getenv("E2E_ADMIN_ID"); id != "" {
		return id
	}
	return "admin"
}

func TestE2E_DepositWithdrawFlow(t *testing.T) {
	waitUntilReady(t)

	user := uniq("e2e-cash")
	deposit(t, user, 5000)
	assert.Equal(t, int64(5000), available(t, user))

	t.Run("withdraw above balance rejected up front", func(t *testing.T) {
		code, body := do(t, http.MethodPost, "/transactions", map[string]any{
			"userId": user, "amount": 6000, "kind": "WITHDRAW",
		})
		require.Equal(t, http.StatusPaymentRequired, code, string(body))
	})

	t.Run("withdraw approved once", func(t *testing.T) {
		tx := request(t, user, 2000, "WITHDRAW", "")

		code, body := do(t, http.MethodPost, "/transactions/"+tx.ID+"/approve", map[string]any{"approverId": adminID()})
		require.Equal(t, http.StatusOK, code, string(body))

		code, body = do(t, http.MethodPost, "/transactions/"+tx.ID+"/approve", map[string]any{"approverId": adminID()})
		require.Equal(t, http.StatusConflict, code, string(body))

		assert.Equal(t, int64(3000), available(t, user))
	})

	t.Run("request id replays", func(t *testing.T) {
		rid := uniq("rid")
		first := request(t, user, 1000, "DEPOSIT", rid)
		second := request(t, user, 1000, "DEPOSIT", rid)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("non admin cannot approve", func(t *testing.T) {
		tx := request(t, user, 1000, "DEPOSIT", "")
		code, body := do(t, http.MethodPost, "/transactions/"+tx.ID+"/approve", map[string]any{"approverId": user})
		require.Equal(t, http.StatusForbidden, code, string(body))
	})
}

func TestE2E_WagerLifecycle(t *testing.T) {
	waitUntilReady(t)

	p1, p2 := uniq("e2e-p1"), uniq("e2e-p2")
	deposit(t, p1, 6000)
	deposit(t, p2, 6000)

	mode := "triple-draft"
	w1 := createWager(t, p1, mode)
	require.Equal(t, "PENDING", w1.Status)
	w2 := createWager(t, p2, mode)
	require.Equal(t, "MATCHED", w2.Status)
	require.Equal(t, p1, w2.Player2ID)

	code, body := do(t, http.MethodDelete, "/wagers/"+w2.ID+"?userId="+p2, nil)
	require.Equal(t, http.StatusConflict, code, string(body))

	code, body = do(t, http.MethodPost, "/wagers/"+w1.ID+"/session", map[string]any{"userId": p1})
	require.Equal(t, http.StatusOK, code, string(body))

	code, body = do(t, http.MethodPost, "/wagers/"+w1.ID+"/result", map[string]any{"userId": p1, "outcome": "WIN"})
	require.Equal(t, http.StatusOK, code, string(body))
	code, body = do(t, http.MethodPost, "/wagers/"+w2.ID+"/result", map[string]any{"userId": p2, "outcome": "LOSS"})
	require.Equal(t, http.StatusOK, code, string(body))

	var view struct {
		Wager wager `json:"wager"`
		Match struct {
			State    string `json:"state"`
			WinnerID string `json:"winnerId"`
		} `json:"match"`
	}
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "SETTLED", view.Match.State)
	assert.Equal(t, p1, view.Match.WinnerID)

	assert.Equal(t, int64(11000), available(t, p1))
	assert.Equal(t, int64(0), available(t, p2))
}

func TestE2E_CancelPendingRefunds(t *testing.T) {
	waitUntilReady(t)

	p := uniq("e2e-cancel")
	deposit(t, p, 6000)

	w := createWager(t, p, "classic")
	if w.Status != "PENDING" {
		t.Skip("paired with a leftover wager from another run")
	}

	code, body := do(t, http.MethodDelete, "/wagers/"+w.ID+"?userId="+p, nil)
	require.Equal(t, http.StatusNoContent, code, string(body))
	assert.Equal(t, int64(6000), available(t, p))
}

type transaction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type wager struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Player2ID string `json:"player2Id"`
}

func request(t *testing.T, user string, amount int64, kind, requestID string) transaction {
	t.Helper()

	code, body := do(t, http.MethodPost, "/transactions", map[string]any{
		"userId": user, "amount": amount, "kind": kind, "requestId": requestID,
	})
	require.Equal(t, http.StatusCreated, code, string(body))

	var tx transaction
	require.NoError(t, json.Unmarshal(body, &tx))
	return tx
}

func deposit(t *testing.T, user string, amount int64) {
	t.Helper()

	tx := request(t, user, amount, "DEPOSIT", "")
	code, body := do(t, http.MethodPost, "/transactions/"+tx.ID+"/approve", map[string]any{"approverId": adminID()})
	require.Equal(t, http.StatusOK, code, string(body))
}

func createWager(t *testing.T, user, mode string) wager {
	t.Helper()

	code, body := do(t, http.MethodPost, "/wagers", map[string]any{"userId": user, "amount": 6000, "mode": mode})
	require.Equal(t, http.StatusCreated, code, string(body))

	var w wager
	require.NoError(t, json.Unmarshal(body, &w))
	return w
}

func available(t *testing.T, user string) int64 {
	t.Helper()

	code, body := do(t, http.MethodGet, "/users/"+user+"/balance", nil)
	require.Equal(t, http.StatusOK, code, string(body))

	var b struct {
		Available int64 `json:"available"`
	}
	require.NoError(t, json.Unmarshal(body, &b))
	return b.Available
}

func do(t *testing.T, method, path string, payload any) (int, []byte) {
	t.Helper()

	var rd io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		require.NoError(t, err)
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, baseURL()+path, rd)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func waitUntilReady(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(waitReady)
	for time.Now().Before(deadline) {
		resp, err := httpClient.Get(baseURL() + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		} else if !isConnRefused(err) {
			t.Logf("waiting for api: %v", err)
		}

		time.Sleep(200 * time.Millisecond)
	}

	t.Fatalf("api at %s not ready after %s", baseURL(), waitReady)
}

func isConnRefused(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func uniq(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
