package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// MemCache is the in-process recency cache used when no redis URL is
// configured. Entries are held encoded so readers never share state.
type MemCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	items     [][]byte
	expiresAt time.Time
	now       func() time.Time
}

func NewMemCache(ttl time.Duration) *MemCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemCache{ttl: ttl, now: time.Now}
}

func (c *MemCache) Append(_ context.Context, s *domain.Sample) error {
	raw, err := s.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	if len(c.items) == 0 {
		c.expiresAt = c.now().Add(c.ttl)
	}
	c.items = append(c.items, raw)
	return nil
}

func (c *MemCache) Get(_ context.Context, index int64) (*domain.Sample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	if index < 0 || index >= int64(len(c.items)) {
		return nil, ports.ErrNotFound
	}
	return domain.DecodeSample(c.items[index])
}

func (c *MemCache) GetAll(_ context.Context) ([]*domain.Sample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	out := make([]*domain.Sample, 0, len(c.items))
	for _, raw := range c.items {
		s, err := domain.DecodeSample(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *MemCache) Size(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	return int64(len(c.items)), nil
}

func (c *MemCache) Clear(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.expiresAt = time.Time{}
	return nil
}

// TTL reports the remaining lifetime of the sequence, or zero when empty.
func (c *MemCache) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expireLocked()
	if len(c.items) == 0 {
		return 0
	}
	return c.expiresAt.Sub(c.now())
}

func (c *MemCache) expireLocked() {
	if len(c.items) > 0 && !c.now().Before(c.expiresAt) {
		c.items = nil
		c.expiresAt = time.Time{}
	}
}

var _ ports.RecencyCache = (*MemCache)(nil)
