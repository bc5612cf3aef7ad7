package cache

import (
	"context"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// Sink appends ingested samples to a recency cache.
type Sink struct {
	cache ports.RecencyCache
}

func NewSink(c ports.RecencyCache) *Sink { return &Sink{cache: c} }

func (s *Sink) Name() string { return "recency_cache" }

func (s *Sink) Write(ctx context.Context, sample *domain.Sample) error {
	return s.cache.Append(ctx, sample)
}

var _ ports.Sink = (*Sink)(nil)
