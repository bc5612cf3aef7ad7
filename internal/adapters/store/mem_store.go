package store

import (
	"context"
	"sync"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// MemStore keeps records in process. It backs runs without a database.
type MemStore struct {
	mu      sync.RWMutex
	records []*domain.Sample
	nextID  int64
}

func NewMemStore() *MemStore {
	return &MemStore{nextID: 1}
}

func (m *MemStore) Name() string { return "memory_store" }

func (m *MemStore) Save(_ context.Context, s *domain.Sample) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := s.Clone()
	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, rec)
	return rec.ID, nil
}

func (m *MemStore) Write(ctx context.Context, s *domain.Sample) error {
	_, err := m.Save(ctx, s)
	return err
}

func (m *MemStore) QueryAll(context.Context) ([]*domain.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Sample, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec.Clone())
	}
	return out, nil
}

func (m *MemStore) QueryByID(_ context.Context, id int64) (*domain.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// ids are dense and start at 1
	if id < 1 || id > int64(len(m.records)) {
		return nil, ports.ErrNotFound
	}
	return m.records[id-1].Clone(), nil
}

// AsSink exposes a store to the ingest pipeline.
func AsSink(st ports.Store) ports.Sink {
	if s, ok := st.(ports.Sink); ok {
		return s
	}
	return storeSink{st: st}
}

type storeSink struct {
	st ports.Store
}

func (s storeSink) Name() string { return "durable_store" }

func (s storeSink) Write(ctx context.Context, sample *domain.Sample) error {
	_, err := s.st.Save(ctx, sample)
	return err
}

var (
	_ ports.Store = (*MemStore)(nil)
	_ ports.Sink  = (*MemStore)(nil)
)
