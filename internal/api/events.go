package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fastprodman/wagerengine/internal/services/notify"
)

const heartbeatInterval = 15 * time.Second

// TransactionEvents handles GET /events/transactions
func (h *HandlerProvider) TransactionEvents(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, h.svc.Events.SubscribeTransactions())
}

// UserEvents handles GET /users/{id}/events
func (h *HandlerProvider) UserEvents(w http.ResponseWriter, r *http.Request) {
	userID := pathID(r)
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	h.stream(w, r, h.svc.Events.SubscribeUser(userID))
}

// stream writes sub as server-sent events until the client goes away or the
// subscription is closed.
func (h *HandlerProvider) stream(w http.ResponseWriter, r *http.Request, sub *notify.Subscription) {
	defer sub.Close()

	rc := http.NewResponseController(w)
	// long-lived: lift the server write timeout for this response only
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	err := rc.Flush()
	if err != nil {
		slog.Error("streaming unsupported", "error", err)
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			_, err = fmt.Fprint(w, ": ping\n\n")
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			err = writeEvent(w, ev)
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			slog.Debug("event stream closed", "error", err)
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev notify.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
