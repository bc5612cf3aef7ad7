package healthmon

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/bus"
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/cache"
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/httpapi"
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/observability"
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/queue"
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/sampler"
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/store"
	"github.com/kateb7566/system-health-monitor-etl/internal/app/collector"
	"github.com/kateb7566/system-health-monitor-etl/internal/app/pipeline"
	"github.com/kateb7566/system-health-monitor-etl/internal/app/records"
	"github.com/kateb7566/system-health-monitor-etl/internal/app/transform"
	"github.com/kateb7566/system-health-monitor-etl/internal/logging"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	sampler       Sampler
	bus           Bus
	cache         RecencyCache
	store         Store
	queue         SampleQueue
	transformer   Transformer
	observability Observability
	logger        *slog.Logger
	sinks         []Sink
}

// WithSampler replaces the gopsutil host sampler (simulators, remote probes, tests).
func WithSampler(s Sampler) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sampler = s
	}
}

// WithBus injects the publish/subscribe transport used by the live viewer.
func WithBus(b Bus) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.bus = b
	}
}

// WithCache injects the recency cache.
func WithCache(c RecencyCache) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.cache = c
	}
}

// WithStore injects the durable record store. A store that also implements
// Sink receives writes directly.
func WithStore(s Store) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.store = s
	}
}

// WithSampleQueue injects a custom queue implementation.
func WithSampleQueue(q SampleQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithTransformer overrides the default validating transformer.
func WithTransformer(t Transformer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.transformer = t
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithLogger sets the logger used by the default observability backend
// and the HTTP server.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = l
	}
}

// WithSink adds a sink next to the store and cache. It may be repeated.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// Runtime wires sampler → collector → {bus, queue → store/cache/sinks} and
// serves the records API and live viewer. It is the unit to embed the
// monitor inside another Go service.
type Runtime struct {
	cfg       *Config
	policy    ports.Policy
	logger    *slog.Logger
	obs       ports.Observability
	bus       ports.Bus
	cache     ports.RecencyCache
	store     ports.Store
	queue     ports.SampleQueue
	collector *collector.Collector
	records   *records.Service
	sinks     []ports.Sink
	server    *httpapi.Server

	redis redis.UniversalClient
	db    *sql.DB
}

// NewRuntime bootstraps the default adapters (gopsutil sampler, redis or
// in-process bus and cache, Postgres or in-process store, Prometheus
// observability). RuntimeOption values override any of them. Each
// Runtime owns its metrics registry and serves it on /metrics, so
// several may live in one process.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	logger := overrides.logger
	if logger == nil {
		logger = logging.New("healthmon", Version, cfg.Log.Level)
	}

	var metrics http.Handler
	obs := overrides.observability
	if obs == nil {
		reg := observability.NewRegistry()
		obs = observability.NewPromObsWithRegisterer(reg, logger)
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	rt := &Runtime{
		cfg:    cfg,
		policy: cfg.Pipeline,
		logger: logger,
		obs:    obs,
		bus:    overrides.bus,
		cache:  overrides.cache,
		store:  overrides.store,
		queue:  overrides.queue,
	}

	if rt.bus == nil || rt.cache == nil {
		if err := rt.openBusAndCache(); err != nil {
			return nil, err
		}
	}

	if rt.store == nil {
		if cfg.Database.URL == "" {
			rt.store = store.NewMemStore()
		} else {
			db, err := sql.Open("postgres", cfg.Database.URL)
			if err != nil {
				rt.closeClients()
				return nil, fmt.Errorf("open database: %w", err)
			}
			rt.db = db
			rt.store = store.NewPostgresStore(db, cfg.Database.Table)
		}
	}

	if rt.queue == nil {
		rt.queue = queue.NewMemQueue(cfg.Pipeline.MaxQueueLen)
	}

	smp := overrides.sampler
	if smp == nil {
		smp = sampler.NewHostSampler("/")
	}
	tr := overrides.transformer
	if tr == nil {
		tr = transform.NewSampleTransformer()
	}

	rt.collector = collector.New(smp, rt.bus, tr, cfg.Collector, obs)
	rt.records = records.NewService(rt.store, rt.cache, obs)
	rt.sinks = append([]ports.Sink{store.AsSink(rt.store), cache.NewSink(rt.cache)}, overrides.sinks...)
	rt.server = httpapi.New(cfg.HTTP, httpapi.Deps{
		Records: rt.records,
		Bus:     rt.bus,
		Channel: cfg.Collector.Channel,
		Fetcher: rt,
		Obs:     obs,
		Logger:  logger,
		Metrics: metrics,
	})

	return rt, nil
}

func (r *Runtime) openBusAndCache() error {
	if r.cfg.Redis.InProcess() {
		if r.bus == nil {
			r.bus = bus.NewMemBus(r.cfg.Redis.SubscriberBuffer)
		}
		if r.cache == nil {
			r.cache = cache.NewMemCache(r.cfg.Redis.CacheTTL)
		}
		return nil
	}

	opts, err := redis.ParseURL(r.cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	r.redis = redis.NewClient(opts)
	if r.bus == nil {
		r.bus = bus.NewRedisBus(r.redis)
	}
	if r.cache == nil {
		r.cache = cache.NewRedisCache(r.redis, r.cfg.Redis.CacheKey, r.cfg.Redis.CacheTTL)
	}
	return nil
}

// Run starts collection, ingestion and the HTTP server and blocks until
// ctx is cancelled or one of them fails. Resources are released on return.
func (r *Runtime) Run(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	defer func() {
		if err := r.closeClients(); err != nil {
			r.obs.LogError("runtime_close_failed", err)
		}
	}()

	if pg, ok := r.store.(*store.PostgresStore); ok && r.cfg.Database.EnsureSchema {
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
	}

	r.obs.LogInfo("runtime_started",
		ports.Field{Key: "addr", Value: r.cfg.HTTP.Addr},
		ports.Field{Key: "interval", Value: r.cfg.Collector.Interval.String()},
		ports.Field{Key: "sinks", Value: len(r.sinks)},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pipeline.RunEdgePipeline(gctx, r.collector, r.queue, r.policy, r.obs)
	})
	g.Go(func() error {
		return pipeline.RunIngestPipeline(gctx, r.queue, r.sinks, r.policy, r.obs)
	})
	g.Go(func() error {
		return r.server.Start(gctx)
	})
	g.Go(func() error {
		r.recordGauges(gctx, time.Second)
		return nil
	})

	err := g.Wait()
	r.obs.LogInfo("runtime_stopped")
	return err
}

// FetchNow runs one collection cycle outside the schedule. The sample is
// published and queued for the sinks like any scheduled one.
func (r *Runtime) FetchNow(ctx context.Context) (*Sample, bool) {
	s, ok := r.collector.Collect(ctx)
	if !ok {
		return nil, false
	}
	if !pipeline.EnqueueWithPolicy(ctx, r.queue, s.Clone(), r.policy, r.obs) {
		r.obs.IncCounter(observability.QueueDropped, 1)
	}
	return s, true
}

// Records returns every durable record, empty when the store is unavailable.
func (r *Runtime) Records(ctx context.Context) []*Sample {
	return r.records.All(ctx)
}

// Record returns one durable record or ErrNotFound.
func (r *Runtime) Record(ctx context.Context, id int64) (*Sample, error) {
	return r.records.ByID(ctx, id)
}

// Recent returns the samples in the recency cache.
func (r *Runtime) Recent(ctx context.Context) []*Sample {
	return r.records.Recent(ctx)
}

// Subscribe registers a live consumer of the metrics channel.
func (r *Runtime) Subscribe(ctx context.Context) (Subscription, error) {
	return r.bus.Subscribe(ctx, r.cfg.Collector.Channel)
}

// Handler exposes the HTTP API without starting a listener, for embedding
// in an existing server.
func (r *Runtime) Handler() http.Handler {
	return r.server.Handler()
}

// Shutdown releases the bus, redis client and database handle. Run calls
// it on return; it is only needed when Run was never started.
func (r *Runtime) Shutdown(context.Context) error {
	return r.closeClients()
}

func (r *Runtime) closeClients() error {
	var errs []error
	if r.bus != nil {
		if err := r.bus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if r.redis != nil {
		if err := r.redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runtime) recordGauges(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.obs.SetGauge(observability.QueueLength, float64(r.queue.Len()))
			r.records.RecentSize(ctx)
		}
	}
}
