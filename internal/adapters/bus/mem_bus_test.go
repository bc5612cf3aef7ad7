package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

func TestMemBusDeliversOnlyAfterSubscribe(t *testing.T) {
	ctx := context.Background()
	b := NewMemBus(4)
	defer b.Close()

	require.NoError(t, b.Publish(ctx, "metrics-channel", []byte("before")))

	sub, err := b.Subscribe(ctx, "metrics-channel")
	require.NoError(t, err)
	defer sub.Close()

	_, ok, err := sub.Next(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok, "message published before subscribe must not be replayed")

	require.NoError(t, b.Publish(ctx, "metrics-channel", []byte("first")))
	require.NoError(t, b.Publish(ctx, "metrics-channel", []byte("second")))
	require.NoError(t, b.Publish(ctx, "other", []byte("elsewhere")))

	msg, ok, err := sub.Next(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "first", string(msg.Payload))
	require.Equal(t, "metrics-channel", msg.Channel)

	msg, ok, err = sub.Next(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", string(msg.Payload))

	_, ok, err = sub.Next(ctx, 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemBusPublishWithoutSubscribersSucceeds(t *testing.T) {
	b := NewMemBus(0)
	require.NoError(t, b.Publish(context.Background(), "metrics-channel", []byte("x")))
	require.Equal(t, 0, b.SubscriberCount("metrics-channel"))
}

func TestMemBusDropsForFullSubscriber(t *testing.T) {
	ctx := context.Background()
	b := NewMemBus(1)
	defer b.Close()

	slow, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)
	fast, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "c", []byte("1")))
	msg, ok, err := fast.Next(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(msg.Payload))

	require.NoError(t, b.Publish(ctx, "c", []byte("2")))
	require.Equal(t, uint64(1), b.Dropped())

	msg, ok, err = fast.Next(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", string(msg.Payload))

	msg, ok, err = slow.Next(ctx, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", string(msg.Payload))
}

func TestMemBusUnsubscribeAndCloseAreIdempotent(t *testing.T) {
	ctx := context.Background()
	b := NewMemBus(4)

	sub, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, 1, b.SubscriberCount("c"))

	require.NoError(t, sub.Unsubscribe(ctx))
	require.NoError(t, sub.Unsubscribe(ctx))
	require.Equal(t, 0, b.SubscriberCount("c"))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, _, err = sub.Next(ctx, time.Second)
	require.True(t, errors.Is(err, ports.ErrSubscriptionClosed))
}

func TestMemBusCloseEndsSubscriptions(t *testing.T) {
	ctx := context.Background()
	b := NewMemBus(4)

	sub, err := b.Subscribe(ctx, "c")
	require.NoError(t, err)

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, _, err = sub.Next(ctx, time.Second)
	require.ErrorIs(t, err, ports.ErrSubscriptionClosed)
	require.NoError(t, sub.Unsubscribe(ctx))

	require.ErrorIs(t, b.Publish(ctx, "c", []byte("x")), ports.ErrBusClosed)
	_, err = b.Subscribe(ctx, "c")
	require.ErrorIs(t, err, ports.ErrBusClosed)
}

func TestMemSubscriptionNextHonoursContext(t *testing.T) {
	b := NewMemBus(4)
	defer b.Close()

	sub, err := b.Subscribe(context.Background(), "c")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok, err := sub.Next(ctx, time.Minute)
	require.False(t, ok)
	require.ErrorIs(t, err, context.Canceled)
}
