package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

const (
	SamplesCollected      = "hm_samples_collected_total"
	CollectAttemptsFailed = "hm_collect_attempt_failures_total"
	CollectCyclesFailed   = "hm_collect_cycles_failed_total"
	SamplesInvalid        = "hm_samples_invalid_total"
	PublishFailures       = "hm_bus_publish_failures_total"
	SamplesIngested       = "hm_samples_ingested_total"
	SinkWriteFailures     = "hm_sink_write_failures_total"
	QueueDropped          = "hm_queue_dropped_total"
	ViewerMessages        = "hm_viewer_messages_total"
	ReadFailures          = "hm_read_failures_total"

	QueueLength   = "hm_queue_length"
	CacheSize     = "hm_cache_size"
	ActiveViewers = "hm_active_viewers"

	CollectLatency = "hm_collect_latency_seconds"
	SinkLatency    = "hm_sink_latency_seconds"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

// NewRegistry returns a registry carrying the Go runtime and process
// collectors, so one monitor instance never collides with another.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewPromObsWithRegisterer(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if logger == nil {
		logger = slog.Default()
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	counters := map[string]prometheus.Counter{
		SamplesCollected:      counter(SamplesCollected, "Samples produced by successful collection cycles."),
		CollectAttemptsFailed: counter(CollectAttemptsFailed, "Sampler attempts that returned an error."),
		CollectCyclesFailed:   counter(CollectCyclesFailed, "Collection cycles abandoned after exhausting retries."),
		SamplesInvalid:        counter(SamplesInvalid, "Samples dropped for missing required fields."),
		PublishFailures:       counter(PublishFailures, "Bus publish calls that failed."),
		SamplesIngested:       counter(SamplesIngested, "Samples fanned out to the sinks."),
		SinkWriteFailures:     counter(SinkWriteFailures, "Sink writes that failed and were dropped."),
		QueueDropped:          counter(QueueDropped, "Samples lost due to queue backpressure policies."),
		ViewerMessages:        counter(ViewerMessages, "Frames relayed to live viewers."),
		ReadFailures:          counter(ReadFailures, "Store or cache reads answered with an empty default."),
	}
	gauges := map[string]prometheus.Gauge{
		QueueLength:   gauge(QueueLength, "Current number of samples buffered in the in-memory queue."),
		CacheSize:     gauge(CacheSize, "Samples currently held by the recency cache."),
		ActiveViewers: gauge(ActiveViewers, "Live viewers currently streaming."),
	}
	collectLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    CollectLatency,
		Help:    "Duration of a collection cycle including retries.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    SinkLatency,
		Help:    "Latency of a single sink write.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})

	collectors := []prometheus.Collector{collectLatency, sinkLatency}
	for _, c := range counters {
		collectors = append(collectors, c)
	}
	for _, g := range gauges {
		collectors = append(collectors, g)
	}
	reg.MustRegister(collectors...)

	return &PromObs{
		logger:   logger,
		counters: counters,
		gauges:   gauges,
		histos: map[string]prometheus.Observer{
			CollectLatency: collectLatency,
			SinkLatency:    sinkLatency,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.logger.Warn(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("error", err))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	p.logger.Error(msg, append(attrs(fields), slog.Any("error", err), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) AddGauge(name string, delta float64) {
	if g, ok := p.gauges[name]; ok {
		g.Add(delta)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
