package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

func newTestRedisBus(t *testing.T) (*RedisBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBus(client)
	t.Cleanup(func() {
		_ = b.Close()
		_ = client.Close()
	})
	return b, mr
}

func TestRedisBusPublishSubscribe(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestRedisBus(t)

	require.NoError(t, b.Publish(ctx, "metrics-channel", []byte("before")))

	sub, err := b.Subscribe(ctx, "metrics-channel")
	require.NoError(t, err)
	defer sub.Close()

	payload := []byte(`{"cpu_percent": 25.5}`)
	require.NoError(t, b.Publish(ctx, "metrics-channel", payload))

	msg, ok, err := sub.Next(ctx, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, payload, msg.Payload)
	require.Equal(t, "metrics-channel", msg.Channel)

	_, ok, err = sub.Next(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisSubscriptionCleanupIsIdempotent(t *testing.T) {
	ctx := context.Background()
	b, mr := newTestRedisBus(t)

	sub, err := b.Subscribe(ctx, "metrics-channel")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("metrics-channel")["metrics-channel"] == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Unsubscribe(ctx))
	require.NoError(t, sub.Unsubscribe(ctx))
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub("metrics-channel")["metrics-channel"] == 0
	}, time.Second, 10*time.Millisecond)
}

func TestRedisBusPublishFailsWhenServerGone(t *testing.T) {
	b, mr := newTestRedisBus(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.Error(t, b.Publish(ctx, "metrics-channel", []byte("x")))
}

func TestRedisBusCloseEndsSubscriptions(t *testing.T) {
	ctx := context.Background()
	b, _ := newTestRedisBus(t)

	sub, err := b.Subscribe(ctx, "metrics-channel")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, _, err = sub.Next(ctx, time.Second)
	require.ErrorIs(t, err, ports.ErrSubscriptionClosed)
	require.ErrorIs(t, b.Publish(ctx, "metrics-channel", []byte("x")), ports.ErrBusClosed)
	_, err = b.Subscribe(ctx, "metrics-channel")
	require.ErrorIs(t, err, ports.ErrBusClosed)
}
