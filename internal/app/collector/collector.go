package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/observability"
	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

const DefaultChannel = ports.DefaultMetricsChannel

type Config struct {
	Interval    time.Duration `yaml:"interval"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
	Channel     string        `yaml:"channel"`
}

func (c *Config) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffBase < 0 {
		c.BackoffBase = 0
	}
	if c.Channel == "" {
		c.Channel = DefaultChannel
	}
}

// Collector turns a Sampler into validated, published samples. Each
// cycle retries failed attempts with a linear backoff and gives up
// after MaxRetries consecutive failures.
type Collector struct {
	cfg     Config
	sampler ports.Sampler
	bus     ports.Bus
	tr      ports.Transformer
	obs     ports.Observability
	sleep   func(ctx context.Context, d time.Duration) error

	cycleMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(sampler ports.Sampler, bus ports.Bus, tr ports.Transformer, cfg Config, obs ports.Observability) *Collector {
	cfg.ApplyDefaults()
	return &Collector{
		cfg:     cfg,
		sampler: sampler,
		bus:     bus,
		tr:      tr,
		obs:     obs,
		sleep:   sleepCtx,
	}
}

// Collect runs one collection cycle. The sample is published on the
// metrics channel before it is returned. ok is false when every attempt
// failed or the sample was invalid.
func (c *Collector) Collect(ctx context.Context) (*domain.Sample, bool) {
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		s, err := c.sampleOnce(ctx)
		if err == nil {
			c.obs.LogInfo("collect_attempt_succeeded", ports.Field{Key: "attempt", Value: attempt})
			return c.finish(ctx, s, start)
		}
		lastErr = err
		c.obs.IncCounter(observability.CollectAttemptsFailed, 1)
		c.obs.LogError("collect_attempt_failed", err,
			ports.Field{Key: "attempt", Value: attempt},
			ports.Field{Key: "max_retries", Value: c.cfg.MaxRetries},
		)

		if ctx.Err() != nil || attempt == c.cfg.MaxRetries {
			break
		}
		if err := c.sleep(ctx, c.cfg.BackoffBase*time.Duration(attempt)); err != nil {
			lastErr = errors.Join(lastErr, err)
			break
		}
	}

	c.obs.IncCounter(observability.CollectCyclesFailed, 1)
	c.obs.LogError("collect_failed", lastErr, ports.Field{Key: "max_retries", Value: c.cfg.MaxRetries})
	return nil, false
}

func (c *Collector) sampleOnce(ctx context.Context) (*domain.Sample, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	s, err := c.sampler.Sample(actx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("sampler returned no sample")
	}
	return s, nil
}

func (c *Collector) finish(ctx context.Context, raw *domain.Sample, start time.Time) (*domain.Sample, bool) {
	s, err := c.tr.Transform(raw)
	if err != nil {
		c.obs.IncCounter(observability.SamplesInvalid, 1)
		c.obs.LogWarn("sample_invalid", ports.Field{Key: "reason", Value: err.Error()})
		return nil, false
	}

	if res := c.publish(ctx, s); !res.OK() {
		c.obs.IncCounter(observability.PublishFailures, 1)
		c.obs.LogError("bus_publish_failed", res.Err, res.Fields()...)
	}

	c.obs.IncCounter(observability.SamplesCollected, 1)
	c.obs.ObserveLatency(observability.CollectLatency, time.Since(start).Seconds())
	return s, true
}

func (c *Collector) publish(ctx context.Context, s *domain.Sample) ports.Result {
	res := ports.Result{Op: "publish " + c.cfg.Channel}
	payload, err := s.Encode()
	if err != nil {
		res.Err = err
		return res
	}
	res.Err = c.bus.Publish(ctx, c.cfg.Channel, payload)
	return res
}

// Start runs a cycle immediately and then once per interval, sending
// every produced sample to out.
func (c *Collector) Start(out chan<- *domain.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return fmt.Errorf("collector already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.started = true

	c.wg.Add(1)
	go c.loop(ctx, out)
	return nil
}

func (c *Collector) Stop() error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return nil
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	c.wg.Wait()
	return nil
}

func (c *Collector) loop(ctx context.Context, out chan<- *domain.Sample) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		if s, ok := c.Collect(ctx); ok {
			select {
			case out <- s:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.Collector = (*Collector)(nil)
