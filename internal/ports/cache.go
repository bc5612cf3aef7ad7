package ports

import (
	"context"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
)

// RecencyCache is an append-only window of recent samples. The whole
// sequence shares one TTL which is set when absent and never refreshed
// by Append; once it elapses the sequence reads as empty.
type RecencyCache interface {
	Append(ctx context.Context, s *domain.Sample) error
	Get(ctx context.Context, index int64) (*domain.Sample, error)
	GetAll(ctx context.Context) ([]*domain.Sample, error)
	Size(ctx context.Context) (int64, error)
	Clear(ctx context.Context) error
}
