package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fastprodman/wagerengine/internal/infra/metrics"
)

// NewRouter registers every endpoint on a chi router. gatherer backs
// /metrics and may be nil.
func NewRouter(svc Services, m *metrics.Metrics, gatherer prometheus.Gatherer) http.Handler {
	h := NewHandler(svc)
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(instrument(m))

	r.Get("/healthz", h.Healthz)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/transactions", func(r chi.Router) {
		r.Post("/", h.RequestTransaction)
		r.Get("/{id}", h.GetTransaction)
		r.Post("/{id}/approve", h.ApproveTransaction)
		r.Post("/{id}/reject", h.RejectTransaction)
	})

	r.Route("/wagers", func(r chi.Router) {
		r.Post("/", h.CreateWager)
		r.Get("/{id}", h.GetWager)
		r.Delete("/{id}", h.CancelWager)
		r.Post("/{id}/session", h.StartSession)
		r.Post("/{id}/result", h.DeclareResult)
		r.Post("/{id}/resolve", h.ResolveDispute)
	})

	r.Route("/users/{id}", func(r chi.Router) {
		r.Get("/balance", h.GetUserBalance)
		r.Get("/entries", h.ListUserEntries)
		r.Get("/transactions", h.ListUserTransactions)
		r.Get("/wagers", h.ListUserWagers)
		r.Get("/events", h.UserEvents)
	})

	r.Get("/modes", h.ListModes)
	r.Get("/events/transactions", h.TransactionEvents)

	return r
}
