package api

import (
	"net/http"
	"strings"

	"github.com/fastprodman/wagerengine/internal/repos/matches"
	"github.com/fastprodman/wagerengine/internal/services/resolver"
	wagersvc "github.com/fastprodman/wagerengine/internal/services/wagers"
)

type wagerRequest struct {
	UserID    string `json:"userId" validate:"required"`
	Amount    int64  `json:"amount" validate:"gt=0"`
	Mode      string `json:"mode" validate:"required"`
	RequestID string `json:"requestId"`
}

type sessionRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type resultRequest struct {
	UserID      string `json:"userId" validate:"required"`
	Outcome     string `json:"outcome" validate:"required,oneof=WIN LOSS win loss"`
	EvidenceRef string `json:"evidenceRef"`
}

type resolveRequest struct {
	AdjudicatorID string `json:"adjudicatorId" validate:"required"`
	WinnerID      string `json:"winnerId" validate:"required_without=Draw"`
	Draw          bool   `json:"draw"`
}

// CreateWager handles POST /wagers
func (h *HandlerProvider) CreateWager(w http.ResponseWriter, r *http.Request) {
	var req wagerRequest
	if !h.decode(w, r, &req) {
		return
	}

	wg, err := h.svc.Wagers.CreateWager(r.Context(), wagersvc.CreateRequest{
		UserID:    req.UserID,
		Amount:    req.Amount,
		Mode:      req.Mode,
		RequestID: req.RequestID,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, wg)
}

// GetWager handles GET /wagers/{id}
func (h *HandlerProvider) GetWager(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Resolver.View(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// CancelWager handles DELETE /wagers/{id}?userId=...
func (h *HandlerProvider) CancelWager(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId query parameter required")
		return
	}

	_, err := h.svc.Wagers.CancelWager(r.Context(), pathID(r), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StartSession handles POST /wagers/{id}/session
func (h *HandlerProvider) StartSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	wg, err := h.svc.Wagers.StartSession(r.Context(), pathID(r), req.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, wg)
}

// DeclareResult handles POST /wagers/{id}/result
func (h *HandlerProvider) DeclareResult(w http.ResponseWriter, r *http.Request) {
	var req resultRequest
	if !h.decode(w, r, &req) {
		return
	}

	v, err := h.svc.Resolver.DeclareResult(r.Context(), resolver.DeclareRequest{
		WagerID:     pathID(r),
		PlayerID:    req.UserID,
		Outcome:     matches.Outcome(strings.ToUpper(req.Outcome)),
		EvidenceRef: req.EvidenceRef,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// ResolveDispute handles POST /wagers/{id}/resolve
func (h *HandlerProvider) ResolveDispute(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !h.decode(w, r, &req) {
		return
	}

	v, err := h.svc.Resolver.ResolveDispute(r.Context(), resolver.ResolveRequest{
		WagerID:       pathID(r),
		AdjudicatorID: req.AdjudicatorID,
		WinnerID:      req.WinnerID,
		Draw:          req.Draw,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// ListUserWagers handles GET /users/{id}/wagers
func (h *HandlerProvider) ListUserWagers(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Wagers.ListByUser(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if list == nil {
		list = []wagersvc.Wager{}
	}
	writeJSON(w, http.StatusOK, list)
}

// ListModes handles GET /modes
func (h *HandlerProvider) ListModes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Wagers.Modes())
}
