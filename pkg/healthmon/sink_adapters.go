package healthmon

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("healthmon: channel sink closed")

// SampleHandler is invoked with every sample the pipeline ingests. The
// sample is a private copy.
type SampleHandler func(*Sample) error

// NewCallbackSink adapts a SampleHandler into a Sink so callers can plug
// arbitrary functions without defining structs.
func NewCallbackSink(name string, fn SampleHandler) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes samples via a channel; it returns the sink, the
// read-only channel, and a close function that the caller should invoke
// during shutdown.
//
// Write blocks while the buffer is full. Sinks are written one after
// another, so a consumer that falls behind also delays the store and
// cache writes for later samples, and the queue fills up behind it. Size
// buffer for the expected burst, or drain the channel from a dedicated
// goroutine.
func NewChannelSink(name string, buffer int) (Sink, <-chan *Sample, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan *Sample, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, func() { s.close() }
}

type callbackSink struct {
	name string
	fn   SampleHandler
}

func (s *callbackSink) Write(_ context.Context, sample *Sample) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	return s.fn(sample)
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan *Sample
	closed chan struct{}

	mu   sync.RWMutex
	once sync.Once
}

func (s *channelSink) Write(ctx context.Context, sample *Sample) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case <-ctx.Done():
		return ctx.Err()
	case s.ch <- sample:
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		// Writers hold the read lock, so none is mid-send once this is acquired.
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}
