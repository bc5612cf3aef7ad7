package ports

import "github.com/kateb7566/system-health-monitor-etl/internal/domain"

type SampleQueue interface {
	Enqueue(s *domain.Sample) bool
	DequeueBatch(max int) []*domain.Sample
	Len() int
}
