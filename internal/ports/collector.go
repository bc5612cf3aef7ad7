package ports

import (
	"context"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
)

// Sampler produces one telemetry snapshot of the host. It has no retry
// logic of its own.
type Sampler interface {
	Sample(ctx context.Context) (*domain.Sample, error)
}

// Collector streams validated samples into the pipeline until stopped.
type Collector interface {
	Start(out chan<- *domain.Sample) error
	Stop() error
}
