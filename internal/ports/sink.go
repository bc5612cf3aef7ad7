package ports

import (
	"context"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
)

// Sink receives every validated sample from the ingest pipeline. Each
// call gets its own copy of the sample.
type Sink interface {
	Write(ctx context.Context, s *domain.Sample) error
	Name() string
}
