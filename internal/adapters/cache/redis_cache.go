package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

const (
	DefaultKey = "records"
	DefaultTTL = time.Hour
)

// RedisCache keeps recent samples in a redis list. The key TTL is only
// set while the key has none, so appends never extend the window.
type RedisCache struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, key string, ttl time.Duration) *RedisCache {
	if key == "" {
		key = DefaultKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, key: key, ttl: ttl}
}

func (c *RedisCache) Append(ctx context.Context, s *domain.Sample) error {
	raw, err := s.Encode()
	if err != nil {
		return fmt.Errorf("encode sample: %w", err)
	}
	if err := c.client.RPush(ctx, c.key, raw).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", c.key, err)
	}

	ttl, err := c.client.TTL(ctx, c.key).Result()
	if err != nil {
		return fmt.Errorf("redis ttl %s: %w", c.key, err)
	}
	// -1 means the key exists without an expiry.
	if ttl == -1 {
		if err := c.client.Expire(ctx, c.key, c.ttl).Err(); err != nil {
			return fmt.Errorf("redis expire %s: %w", c.key, err)
		}
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, index int64) (*domain.Sample, error) {
	if index < 0 {
		return nil, ports.ErrNotFound
	}
	raw, err := c.client.LIndex(ctx, c.key, index).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis lindex %s: %w", c.key, err)
	}
	return domain.DecodeSample(raw)
}

func (c *RedisCache) GetAll(ctx context.Context) ([]*domain.Sample, error) {
	items, err := c.client.LRange(ctx, c.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange %s: %w", c.key, err)
	}
	out := make([]*domain.Sample, 0, len(items))
	for _, item := range items {
		s, err := domain.DecodeSample([]byte(item))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *RedisCache) Size(ctx context.Context) (int64, error) {
	n, err := c.client.LLen(ctx, c.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", c.key, err)
	}
	return n, nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", c.key, err)
	}
	return nil
}

var _ ports.RecencyCache = (*RedisCache)(nil)
