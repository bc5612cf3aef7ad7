package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/observability"
	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// RunEdgePipeline starts the collector and moves every sample it emits
// into the queue until ctx is done. The collector is stopped on return.
func RunEdgePipeline(ctx context.Context, col ports.Collector, q ports.SampleQueue, pol ports.Policy, obs ports.Observability) error {
	ch := make(chan *domain.Sample, pol.MaxQueueLen)

	if err := col.Start(ch); err != nil {
		return err
	}
	defer func() {
		if err := col.Stop(); err != nil {
			obs.LogError("collector_stop_failed", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-ch:
			if !EnqueueWithPolicy(ctx, q, s, pol, obs) {
				obs.IncCounter(observability.QueueDropped, 1)
			}
			obs.SetGauge(observability.QueueLength, float64(q.Len()))
		}
	}
}

// EnqueueWithPolicy applies the queue-full policy; false means the sample
// was dropped.
func EnqueueWithPolicy(ctx context.Context, q ports.SampleQueue, s *domain.Sample, pol ports.Policy, obs ports.Observability) bool {
	sleep := idleSleep(pol)

	for {
		if ok := q.Enqueue(s); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			select {
			case <-ctx.Done():
				return false
			case <-time.After(sleep):
			}
		case "drop", "reject":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}

func idleSleep(pol ports.Policy) time.Duration {
	if pol.IdleSleep <= 0 {
		return 5 * time.Millisecond
	}
	return pol.IdleSleep
}
