package records

import (
	"context"
	"errors"

	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/observability"
	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// ErrUnavailable wraps a backend failure on a read that cannot fall back
// to an empty answer.
var ErrUnavailable = errors.New("backend unavailable")

// Service is the read boundary over the durable store and the recency
// cache. List reads degrade to empty results; failures are logged once.
type Service struct {
	store ports.Store
	cache ports.RecencyCache
	obs   ports.Observability
}

func NewService(store ports.Store, cache ports.RecencyCache, obs ports.Observability) *Service {
	return &Service{store: store, cache: cache, obs: obs}
}

// All returns every stored record, or an empty slice when the store
// cannot be read.
func (s *Service) All(ctx context.Context) []*domain.Sample {
	out, err := s.store.QueryAll(ctx)
	if res := (ports.Result{Op: "query records", Err: err}); !res.OK() {
		s.readFailed(res)
		return []*domain.Sample{}
	}
	if out == nil {
		out = []*domain.Sample{}
	}
	return out
}

// ByID returns ports.ErrNotFound for a missing record and ErrUnavailable
// when the store failed.
func (s *Service) ByID(ctx context.Context, id int64) (*domain.Sample, error) {
	rec, err := s.store.QueryByID(ctx, id)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ports.ErrNotFound):
		return nil, ports.ErrNotFound
	default:
		res := ports.Result{Op: "query record", Err: err}
		s.readFailed(res, ports.Field{Key: "id", Value: id})
		return nil, errors.Join(ErrUnavailable, err)
	}
}

// Recent returns the cached samples in insertion order.
func (s *Service) Recent(ctx context.Context) []*domain.Sample {
	out, err := s.cache.GetAll(ctx)
	if res := (ports.Result{Op: "read cache", Err: err}); !res.OK() {
		s.readFailed(res)
		return []*domain.Sample{}
	}
	return out
}

func (s *Service) RecentAt(ctx context.Context, index int64) (*domain.Sample, error) {
	rec, err := s.cache.Get(ctx, index)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ports.ErrNotFound):
		return nil, ports.ErrNotFound
	default:
		s.readFailed(ports.Result{Op: "read cache entry", Err: err}, ports.Field{Key: "index", Value: index})
		return nil, errors.Join(ErrUnavailable, err)
	}
}

// RecentSize reports the cache length, zero when unreadable.
func (s *Service) RecentSize(ctx context.Context) int64 {
	n, err := s.cache.Size(ctx)
	if res := (ports.Result{Op: "cache size", Err: err}); !res.OK() {
		s.readFailed(res)
		return 0
	}
	s.obs.SetGauge(observability.CacheSize, float64(n))
	return n
}

func (s *Service) ClearRecent(ctx context.Context) ports.Result {
	res := ports.Result{Op: "clear cache", Err: s.cache.Clear(ctx)}
	if !res.OK() {
		s.obs.LogError("cache_clear_failed", res.Err, res.Fields()...)
		return res
	}
	s.obs.SetGauge(observability.CacheSize, 0)
	return res
}

func (s *Service) readFailed(res ports.Result, extra ...ports.Field) {
	s.obs.IncCounter(observability.ReadFailures, 1)
	s.obs.LogError("read_failed", res.Err, append(res.Fields(), extra...)...)
}
