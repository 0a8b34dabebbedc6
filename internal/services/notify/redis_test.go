package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/wagerengine/internal/infra/metrics"
	"github.com/fastprodman/wagerengine/internal/repos/transactions"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(t.Context(), time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable at %s: %v", addr, err)
	}

	return rdb
}

func TestRedisRelayFeedsLocalBroker(t *testing.T) {
	t.Parallel()

	rdb := testRedis(t)
	channel := "wagerengine.test." + uuid.NewString()

	b := NewBroker(8, metrics.NewUnregistered())
	sub := b.SubscribeTransactions()
	defer sub.Close()

	ctx, cancel := context.WithCancel(t.Context())
	relayDone := make(chan error, 1)
	go func() { relayDone <- RunRedisRelay(ctx, rdb, channel, b) }()

	pub := NewRedisPublisher(rdb, channel)
	tx := transactions.Transaction{ID: "t-relay", UserID: "alice", Status: transactions.StatusApproved}

	// the relay subscribes asynchronously; keep publishing until it is listening
	var got Event
	require.Eventually(t, func() bool {
		pub.Publish(ctx, TransactionFinalized(tx))
		select {
		case got = <-sub.Events():
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, EventTransactionFinalized, got.Type)
	assert.Equal(t, "t-relay", got.Transaction.ID)

	cancel()
	assert.NoError(t, <-relayDone)
}

func TestRedisRelayKeepsRetryingWhileRedisIsDown(t *testing.T) {
	t.Parallel()

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(t.Context())
	relayDone := make(chan error, 1)
	go func() { relayDone <- RunRedisRelay(ctx, rdb, "wagerengine.test.down", Nop{}) }()

	select {
	case err := <-relayDone:
		t.Fatalf("relay returned while redis was unreachable: %v", err)
	case <-time.After(700 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-relayDone:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}
}
