package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fastprodman/wagerengine/internal/errs"
	"github.com/fastprodman/wagerengine/internal/repos/balances"
	"github.com/fastprodman/wagerengine/internal/services/notify"
	"github.com/fastprodman/wagerengine/internal/services/resolver"
	txsvc "github.com/fastprodman/wagerengine/internal/services/transactions"
	wagersvc "github.com/fastprodman/wagerengine/internal/services/wagers"
)

type TransactionService interface {
	RequestTransaction(ctx context.Context, req txsvc.Request) (txsvc.Transaction, error)
	ApproveTransaction(ctx context.Context, id, approverID string) (txsvc.Transaction, error)
	RejectTransaction(ctx context.Context, id, approverID, reason string) (txsvc.Transaction, error)
	Get(ctx context.Context, id string) (txsvc.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]txsvc.Transaction, error)
}

type WagerService interface {
	CreateWager(ctx context.Context, req wagersvc.CreateRequest) (wagersvc.Wager, error)
	CancelWager(ctx context.Context, wagerID, byUserID string) (wagersvc.Wager, error)
	StartSession(ctx context.Context, wagerID, userID string) (wagersvc.Wager, error)
	ListByUser(ctx context.Context, userID string) ([]wagersvc.Wager, error)
	Modes() []wagersvc.Mode
}

type ResolverService interface {
	View(ctx context.Context, wagerID string) (resolver.View, error)
	DeclareResult(ctx context.Context, req resolver.DeclareRequest) (resolver.View, error)
	ResolveDispute(ctx context.Context, req resolver.ResolveRequest) (resolver.View, error)
}

type LedgerReader interface {
	Balance(ctx context.Context, userID string) (balances.Balance, error)
	Entries(ctx context.Context, userID string, limit int) ([]balances.Entry, error)
}

// Services is everything the HTTP surface talks to.
type Services struct {
	Transactions TransactionService
	Wagers       WagerService
	Resolver     ResolverService
	Balances     LedgerReader
	Events       *notify.Broker
	// Ping reports storage health for /healthz.
	Ping func(ctx context.Context) error
}

// HandlerProvider exposes the engine services as HTTP handlers.
type HandlerProvider struct {
	svc      Services
	validate *validator.Validate
}

func NewHandler(svc Services) *HandlerProvider {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &HandlerProvider{svc: svc, validate: v}
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps an engine error category to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrIllegalTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
		return
	}

	writeError(w, status, err.Error())
}

// decode reads a JSON body into dst and validates it. It writes the 400
// response itself and reports whether the handler may continue.
func (h *HandlerProvider) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty body")
			return false
		}

		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}

	err = h.validate.Struct(dst)
	if err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}

	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}

	return strings.Join(msgs, "; ")
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "id"))
}

// Healthz handles GET /healthz
func (h *HandlerProvider) Healthz(w http.ResponseWriter, r *http.Request) {
	if h.svc.Ping != nil {
		err := h.svc.Ping(r.Context())
		if err != nil {
			slog.Warn("health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
