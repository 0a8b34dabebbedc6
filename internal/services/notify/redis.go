package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher broadcasts events to every engine instance over Redis
// Pub/Sub. Each instance feeds its local Broker with RunRedisRelay.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, events ...Event) {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			slog.Warn("encode notification", "type", e.Type, "error", err)
			continue
		}

		err = p.rdb.Publish(ctx, p.channel, payload).Err()
		if err != nil {
			slog.Warn("publish notification to redis", "type", e.Type, "user_id", e.UserID, "error", err)
		}
	}
}

var errRelayClosed = errors.New("subscription channel closed")

// RunRedisRelay subscribes to channel and republishes every event to target
// until ctx is done. A failed or dropped subscription is logged and retried
// with exponential backoff, so it only returns once ctx is done.
func RunRedisRelay(ctx context.Context, rdb *redis.Client, channel string, target Publisher) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 30 * time.Second

	for {
		err := relay(ctx, rdb, channel, target, bo.Reset)
		if ctx.Err() != nil {
			return nil
		}

		wait := bo.NextBackOff()
		slog.Warn("redis relay interrupted, resubscribing", "channel", channel, "retry_in", wait, "error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func relay(ctx context.Context, rdb *redis.Client, channel string, target Publisher, subscribed func()) error {
	sub := rdb.Subscribe(ctx, channel)
	//nolint:errcheck
	defer sub.Close()

	_, err := sub.Receive(ctx)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}
	subscribed()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errRelayClosed
			}

			var e Event
			err := json.Unmarshal([]byte(msg.Payload), &e)
			if err != nil {
				slog.Warn("decode relayed notification", "error", err)
				continue
			}

			target.Publish(ctx, e)
		}
	}
}
