package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/repos/balances"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
	txsvc "github.com/fastprodman/wagerengine/internal/services/transactions"
)

type txRequest struct {
	UserID    string `json:"userId" validate:"required"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Kind      string `json:"kind" validate:"required"`
	RequestID string `json:"requestId"`
}

type approveRequest struct {
	ApproverID string `json:"approverId" validate:"required"`
}

type rejectRequest struct {
	ApproverID string `json:"approverId" validate:"required"`
	Reason     string `json:"reason"`
}

// RequestTransaction handles POST /transactions
func (h *HandlerProvider) RequestTransaction(w http.ResponseWriter, r *http.Request) {
	var req txRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.svc.Transactions.RequestTransaction(r.Context(), txsvc.Request{
		UserID:    req.UserID,
		Amount:    req.Amount,
		Kind:      transactions.Kind(strings.ToUpper(req.Kind)),
		RequestID: req.RequestID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// GetTransaction handles GET /transactions/{id}
func (h *HandlerProvider) GetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Transactions.Get(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// ApproveTransaction handles POST /transactions/{id}/approve
func (h *HandlerProvider) ApproveTransaction(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.svc.Transactions.ApproveTransaction(r.Context(), pathID(r), req.ApproverID)
	if errors.Is(err, txsvc.ErrAutoRejected) {
		// the rejection is committed; return it alongside the error
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":       err.Error(),
			"transaction": tx,
		})
		return
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// RejectTransaction handles POST /transactions/{id}/reject
func (h *HandlerProvider) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if !h.decode(w, r, &req) {
		return
	}

	tx, err := h.svc.Transactions.RejectTransaction(r.Context(), pathID(r), req.ApproverID, req.Reason)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// ListUserTransactions handles GET /users/{id}/transactions
func (h *HandlerProvider) ListUserTransactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Transactions.ListByUser(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if list == nil {
		list = []txsvc.Transaction{}
	}
	writeJSON(w, http.StatusOK, list)
}

// GetUserBalance handles GET /users/{id}/balance
func (h *HandlerProvider) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	b, err := h.svc.Balances.Balance(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"userId":    b.UserID,
		"available": b.Available,
		"escrowed":  b.Escrowed,
	})
}

const (
	defaultEntriesLimit = 100
	maxEntriesLimit     = 1000
)

// ListUserEntries handles GET /users/{id}/entries?limit=N
func (h *HandlerProvider) ListUserEntries(w http.ResponseWriter, r *http.Request) {
	limit := defaultEntriesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxEntriesLimit {
			writeServiceError(w, r, errs.Validation("limit must be between 1 and "+strconv.Itoa(maxEntriesLimit)))
			return
		}
		limit = n
	}

	list, err := h.svc.Balances.Entries(r.Context(), pathID(r), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if list == nil {
		list = []balances.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}
