package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fastprodman/wagerengine/internal/infra/metrics"
)

const DefaultBuffer = 64

// Broker is the in-process fan-out. Each subscription gets its own buffered
// channel; a full channel loses the event rather than stalling the publisher.
// Events for one user are delivered in publish order, and a balance snapshot
// older than one already delivered to that user is discarded.
type Broker struct {
	buffer  int
	metrics *metrics.Metrics

	mu       sync.Mutex
	users    map[string]map[*Subscription]struct{}
	all      map[*Subscription]struct{}
	versions map[string]int64
}

func NewBroker(buffer int, m *metrics.Metrics) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	return &Broker{
		buffer:   buffer,
		metrics:  m,
		users:    make(map[string]map[*Subscription]struct{}),
		all:      make(map[*Subscription]struct{}),
		versions: make(map[string]int64),
	}
}

type Subscription struct {
	broker *Broker
	userID string
	ch     chan Event
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unsubscribes and closes the channel. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.broker.remove(s) })
}

// SubscribeUser streams every event addressed to userID.
func (b *Broker) SubscribeUser(userID string) *Subscription {
	s := &Subscription{broker: b, userID: userID, ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.users[userID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.users[userID] = subs
	}
	subs[s] = struct{}{}
	b.metrics.Subscribers.Inc()

	return s
}

// SubscribeTransactions streams finalized transactions of all users.
func (b *Broker) SubscribeTransactions() *Subscription {
	s := &Subscription{broker: b, ch: make(chan Event, b.buffer)}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.all[s] = struct{}{}
	b.metrics.Subscribers.Inc()

	return s
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.userID == "" {
		delete(b.all, s)
	} else if subs, ok := b.users[s.userID]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(b.users, s.userID)
			delete(b.versions, s.userID)
		}
	}

	b.metrics.Subscribers.Dec()
	close(s.ch)
}

func (b *Broker) Publish(_ context.Context, events ...Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, e := range events {
		subs := b.users[e.UserID]

		if e.Type == EventBalanceChanged && e.Balance != nil && len(subs) > 0 {
			if e.Balance.Version <= b.versions[e.UserID] {
				continue
			}
			b.versions[e.UserID] = e.Balance.Version
		}

		for s := range subs {
			b.deliver(s, e)
		}

		if e.Type == EventTransactionFinalized {
			for s := range b.all {
				b.deliver(s, e)
			}
		}
	}
}

func (b *Broker) deliver(s *Subscription, e Event) {
	select {
	case s.ch <- e:
	default:
		b.metrics.DroppedEvents.WithLabelValues(string(e.Type)).Inc()
		slog.Debug("notification dropped", "type", e.Type, "user_id", e.UserID)
	}
}
