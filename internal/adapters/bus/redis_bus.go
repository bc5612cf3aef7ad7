package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// RedisBus carries channels over redis PUBLISH/SUBSCRIBE. The client is
// shared with other adapters and is not closed by the bus.
type RedisBus struct {
	client redis.UniversalClient

	mu     sync.Mutex
	closed bool
	subs   map[*redisSubscription]struct{}
}

func NewRedisBus(client redis.UniversalClient) *RedisBus {
	return &RedisBus{client: client, subs: make(map[*redisSubscription]struct{})}
}

func (b *RedisBus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *RedisBus) Publish(ctx context.Context, channel string, payload []byte) error {
	if b.isClosed() {
		return ports.ErrBusClosed
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string) (ports.Subscription, error) {
	if b.isClosed() {
		return nil, ports.ErrBusClosed
	}
	ps := b.client.Subscribe(ctx, channel)
	// Wait for the subscribe confirmation so later publishes are not missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", channel, err)
	}
	sub := &redisSubscription{
		bus:     b,
		ps:      ps,
		channel: channel,
		ch:      ps.Channel(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		_ = ps.Close()
		return nil, ports.ErrBusClosed
	}
	b.subs[sub] = struct{}{}
	return sub, nil
}

// Close ends every open subscription. It is idempotent.
func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*redisSubscription, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*redisSubscription]struct{})
	b.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *RedisBus) forget(sub *redisSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub)
}

type redisSubscription struct {
	bus     *RedisBus
	ps      *redis.PubSub
	channel string
	ch      <-chan *redis.Message

	mu           sync.Mutex
	unsubscribed bool
	closed       bool
}

func (s *redisSubscription) Next(ctx context.Context, timeout time.Duration) (ports.Message, bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-s.ch:
		if !ok {
			return ports.Message{}, false, ports.ErrSubscriptionClosed
		}
		return ports.Message{Channel: msg.Channel, Payload: []byte(msg.Payload)}, true, nil
	case <-timer.C:
		return ports.Message{}, false, nil
	case <-ctx.Done():
		return ports.Message{}, false, ctx.Err()
	}
}

func (s *redisSubscription) Unsubscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribed || s.closed {
		return nil
	}
	s.unsubscribed = true
	if err := s.ps.Unsubscribe(ctx, s.channel); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("redis unsubscribe %s: %w", s.channel, err)
	}
	return nil
}

func (s *redisSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.bus.forget(s)
	if err := s.ps.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return fmt.Errorf("redis pubsub close: %w", err)
	}
	return nil
}

var _ ports.Bus = (*RedisBus)(nil)
