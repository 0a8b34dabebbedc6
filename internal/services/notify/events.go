// Package notify republishes committed engine state changes to subscribers.
//
// Delivery is best effort and at most once; clients re-fetch authoritative
// state through the REST surface when they miss something.
package notify

import (
	"context"
	"time"

	"github.com/fastprodman/wagerengine/internal/repos/balances"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
	"github.com/fastprodman/wagerengine/internal/repos/wagers"
)

type EventType string

const (
	EventTransactionFinalized EventType = "transaction.finalized"
	EventBalanceChanged       EventType = "balance.changed"
	EventWagerUpdated         EventType = "wager.updated"
)

type Event struct {
	Type        EventType                 `json:"type"`
	UserID      string                    `json:"userId"`
	Transaction *transactions.Transaction `json:"transaction,omitempty"`
	Balance     *balances.Balance         `json:"balance,omitempty"`
	Wager       *wagers.Wager             `json:"wager,omitempty"`
	At          time.Time                 `json:"at"`
}

func TransactionFinalized(t transactions.Transaction) Event {
	return Event{Type: EventTransactionFinalized, UserID: t.UserID, Transaction: &t, At: time.Now().UTC()}
}

func BalanceChanged(b balances.Balance) Event {
	return Event{Type: EventBalanceChanged, UserID: b.UserID, Balance: &b, At: time.Now().UTC()}
}

func WagerUpdated(w wagers.Wager) Event {
	return Event{Type: EventWagerUpdated, UserID: w.Player1ID, Wager: &w, At: time.Now().UTC()}
}

// Balances turns snapshots into events.
func Balances(bs ...balances.Balance) []Event {
	out := make([]Event, 0, len(bs))
	for _, b := range bs {
		out = append(out, BalanceChanged(b))
	}
	return out
}

// Publisher accepts events after the transaction that produced them
// committed. Implementations must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, events ...Event)
}

// Fanout publishes to every member in order.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, events ...Event) {
	if len(events) == 0 {
		return
	}
	for _, p := range f {
		p.Publish(ctx, events...)
	}
}

// Nop drops everything.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) {}
