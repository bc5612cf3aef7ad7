package ports

import (
	"context"
	"time"
)

// DefaultMetricsChannel carries every collected sample.
const DefaultMetricsChannel = "metrics-channel"

// Message is one payload delivered to a subscriber.
type Message struct {
	Channel string
	Payload []byte
}

// Bus is a named-channel publish/subscribe transport. Publish never
// waits on slow subscribers; delivery is at-most-once per subscriber
// and FIFO within one subscription.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns once the registration is active. Messages
	// published before that point are never replayed.
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// Subscription is one registered consumer of a channel. Unsubscribe and
// Close are idempotent and safe after the transport is gone.
type Subscription interface {
	// Next blocks up to timeout. A timeout yields ok=false with a nil error.
	Next(ctx context.Context, timeout time.Duration) (msg Message, ok bool, err error)
	Unsubscribe(ctx context.Context) error
	Close() error
}
