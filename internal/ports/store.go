package ports

import (
	"context"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
)

// Store is the durable record collaborator.
type Store interface {
	Save(ctx context.Context, s *domain.Sample) (int64, error)
	QueryAll(ctx context.Context) ([]*domain.Sample, error)
	// QueryByID returns ErrNotFound when no record has the id.
	QueryByID(ctx context.Context, id int64) (*domain.Sample, error)
}
