package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

const defaultSubscriberBuffer = 64

// MemBus is an in-process bus. Each subscription owns a bounded buffer;
// when it is full the message is dropped for that subscriber only.
type MemBus struct {
	mu      sync.RWMutex
	subs    map[string]map[*memSubscription]struct{}
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

func NewMemBus(buffer int) *MemBus {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &MemBus{
		subs:   make(map[string]map[*memSubscription]struct{}),
		buffer: buffer,
	}
}

func (b *MemBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ports.ErrBusClosed
	}

	for sub := range b.subs[channel] {
		msg := ports.Message{Channel: channel, Payload: append([]byte(nil), payload...)}
		select {
		case sub.ch <- msg:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

func (b *MemBus) Subscribe(_ context.Context, channel string) (ports.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ports.ErrBusClosed
	}

	sub := &memSubscription{
		bus:     b,
		channel: channel,
		ch:      make(chan ports.Message, b.buffer),
		done:    make(chan struct{}),
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memSubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	return sub, nil
}

// SubscriberCount reports the live registrations on channel.
func (b *MemBus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channel])
}

// Dropped reports messages discarded because a subscriber buffer was full.
func (b *MemBus) Dropped() uint64 { return b.dropped.Load() }

func (b *MemBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*memSubscription
	for _, set := range b.subs {
		for sub := range set {
			all = append(all, sub)
		}
	}
	b.subs = make(map[string]map[*memSubscription]struct{})
	b.mu.Unlock()

	for _, sub := range all {
		_ = sub.Close()
	}
	return nil
}

func (b *MemBus) remove(sub *memSubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.channel]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.channel)
		}
	}
}

type memSubscription struct {
	bus     *MemBus
	channel string
	ch      chan ports.Message
	done    chan struct{}

	unsubOnce sync.Once
	closeOnce sync.Once
}

func (s *memSubscription) Next(ctx context.Context, timeout time.Duration) (ports.Message, bool, error) {
	// Buffered messages win over a concurrent close.
	select {
	case msg := <-s.ch:
		return msg, true, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case msg := <-s.ch:
		return msg, true, nil
	case <-timer.C:
		return ports.Message{}, false, nil
	case <-s.done:
		return ports.Message{}, false, ports.ErrSubscriptionClosed
	case <-ctx.Done():
		return ports.Message{}, false, ctx.Err()
	}
}

func (s *memSubscription) Unsubscribe(context.Context) error {
	s.unsubOnce.Do(func() {
		s.bus.remove(s)
	})
	return nil
}

func (s *memSubscription) Close() error {
	_ = s.Unsubscribe(context.Background())
	s.closeOnce.Do(func() {
		close(s.done)
	})
	return nil
}

var _ ports.Bus = (*MemBus)(nil)
