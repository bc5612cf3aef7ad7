package pipeline

import (
	"context"
	"time"

	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/observability"
	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// RunIngestPipeline drains the queue into every sink until ctx is done.
// A failed write is logged and dropped; it never blocks the other sinks.
func RunIngestPipeline(ctx context.Context, q ports.SampleQueue, sinks []ports.Sink, pol ports.Policy, obs ports.Observability) error {
	sleep := idleSleep(pol)

	for {
		if ctx.Err() != nil {
			return nil
		}

		batch := q.DequeueBatch(pol.MaxBatchSize)
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(sleep):
			}
			continue
		}

		for _, s := range batch {
			deliver(ctx, s, sinks, obs)
		}
		obs.SetGauge(observability.QueueLength, float64(q.Len()))
	}
}

func deliver(ctx context.Context, s *domain.Sample, sinks []ports.Sink, obs ports.Observability) {
	for _, sink := range sinks {
		start := time.Now()
		res := ports.Result{Op: "write " + sink.Name(), Err: sink.Write(ctx, s.Clone())}
		if !res.OK() {
			obs.IncCounter(observability.SinkWriteFailures, 1)
			obs.LogError("sink_write_failed", res.Err, res.Fields()...)
			continue
		}
		obs.ObserveLatency(observability.SinkLatency, time.Since(start).Seconds())
	}
	obs.IncCounter(observability.SamplesIngested, 1)
}
