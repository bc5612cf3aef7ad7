package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObsWithRegisterer(reg, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	obs.IncCounter(SamplesIngested, 5)
	if got := testutil.ToFloat64(obs.counters[SamplesIngested]); got != 5 {
		t.Fatalf("expected ingested counter 5, got %f", got)
	}

	obs.IncCounter(QueueDropped, 2)
	if got := testutil.ToFloat64(obs.counters[QueueDropped]); got != 2 {
		t.Fatalf("expected queue drop counter 2, got %f", got)
	}

	obs.SetGauge(CacheSize, 42)
	if got := testutil.ToFloat64(obs.gauges[CacheSize]); got != 42 {
		t.Fatalf("expected cache gauge 42, got %f", got)
	}

	obs.AddGauge(ActiveViewers, 1)
	obs.AddGauge(ActiveViewers, 1)
	obs.AddGauge(ActiveViewers, -1)
	if got := testutil.ToFloat64(obs.gauges[ActiveViewers]); got != 1 {
		t.Fatalf("expected active viewers 1, got %f", got)
	}

	obs.ObserveLatency(CollectLatency, 0.5)
	hCollector := obs.histos[CollectLatency].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.IncCounter("unknown_metric", 1)
}

func TestPromObsLogsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	obs := NewPromObsWithRegisterer(prometheus.NewRegistry(), slog.New(slog.NewJSONHandler(&buf, nil)))

	obs.LogError("collect_attempt_failed", errors.New("psutil exploded"), ports.Field{Key: "attempt", Value: 2})

	out := buf.String()
	for _, want := range []string{`"msg":"collect_attempt_failed"`, `"attempt":2`, `"error":"psutil exploded"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output %s", want, out)
		}
	}
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	first := NewPromObsWithRegisterer(NewRegistry(), logger)
	second := NewPromObsWithRegisterer(NewRegistry(), logger)

	first.IncCounter(SamplesCollected, 1)
	if got := testutil.ToFloat64(second.counters[SamplesCollected]); got != 0 {
		t.Fatalf("expected registries to be independent, got %f", got)
	}
}

func TestNewRegistryGathersRuntimeMetrics(t *testing.T) {
	families, err := NewRegistry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == "go_goroutines" {
			return
		}
	}
	t.Fatalf("expected go_goroutines in a fresh registry")
}
