package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/httpapi"
	"github.com/kateb7566/system-health-monitor-etl/internal/app/collector"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

type Config struct {
	Collector collector.Config `yaml:"collector"`
	Pipeline  ports.Policy     `yaml:"pipeline"`
	Redis     RedisConfig      `yaml:"redis"`
	Database  DatabaseConfig   `yaml:"database"`
	HTTP      httpapi.Config   `yaml:"http"`
	Log       LogConfig        `yaml:"log"`

	// set by the file or the environment, so defaults never mask them
	retriesSet bool
	backoffSet bool
}

// explicitFields records which zero-able collector values the file named.
type explicitFields struct {
	Collector struct {
		MaxRetries  *int           `yaml:"max_retries"`
		BackoffBase *time.Duration `yaml:"backoff_base"`
	} `yaml:"collector"`
}

// RedisConfig selects the bus and cache backend. A memory:// URL keeps
// both in process.
type RedisConfig struct {
	URL              string        `yaml:"url"`
	CacheKey         string        `yaml:"cache_key"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`
	SubscriberBuffer int           `yaml:"subscriber_buffer"`
}

func (r RedisConfig) InProcess() bool {
	return strings.HasPrefix(r.URL, "memory://")
}

// DatabaseConfig points at the durable store. An empty URL keeps records
// in process.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	Table        string `yaml:"table"`
	EnsureSchema bool   `yaml:"ensure_schema"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes YAML, overlays the environment, then applies defaults.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	var seen explicitFields
	if err := yaml.Unmarshal(raw, &seen); err != nil {
		return nil, err
	}
	cfg.retriesSet = seen.Collector.MaxRetries != nil
	cfg.backoffSet = seen.Collector.BackoffBase != nil
	return finish(&cfg)
}

// LoadFromEnv builds a config from defaults and the environment only.
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.validateExplicit(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("REQUEST_TIMEOUT"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
		}
		c.Collector.Timeout = d
	}
	if v, ok := lookup("MAX_RETRIES"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("MAX_RETRIES: %w", err)
		}
		c.Collector.MaxRetries = n
		c.retriesSet = true
	}
	if v, ok := lookup("RETRY_BACKOFF"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("RETRY_BACKOFF: %w", err)
		}
		c.Collector.BackoffBase = d
		c.backoffSet = true
	}
	if v, ok := lookup("COLLECT_INTERVAL"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("COLLECT_INTERVAL: %w", err)
		}
		c.Collector.Interval = d
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.Redis.URL = v
	}
	if v, ok := lookup("DB_URL"); ok {
		c.Database.URL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup("HTTP_ADDR"); ok {
		c.HTTP.Addr = v
	}
	return nil
}

// parseSeconds accepts a Go duration ("1.5s") or bare seconds ("1.5").
func parseSeconds(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return time.Duration(f * float64(time.Second)), nil
}

func (c *Config) applyDefaults() {
	if !c.backoffSet && c.Collector.BackoffBase == 0 {
		c.Collector.BackoffBase = 1500 * time.Millisecond
	}
	c.Collector.ApplyDefaults()

	if c.Pipeline.MaxQueueLen == 0 {
		c.Pipeline.MaxQueueLen = 1024
	}
	if c.Pipeline.MaxBatchSize == 0 {
		c.Pipeline.MaxBatchSize = 64
	}
	if c.Pipeline.IdleSleep == 0 {
		c.Pipeline.IdleSleep = 50 * time.Millisecond
	}
	if c.Pipeline.OnQueueFull == "" {
		c.Pipeline.OnQueueFull = "drop"
	}

	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379/0"
	}
	if c.Redis.CacheKey == "" {
		c.Redis.CacheKey = "records"
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = time.Hour
	}
	if c.Redis.SubscriberBuffer == 0 {
		c.Redis.SubscriberBuffer = 64
	}

	if c.Database.Table == "" {
		c.Database.Table = "resources"
	}

	c.HTTP.ApplyDefaults()

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validateExplicit checks operator-supplied values before defaults can
// replace them.
func (c *Config) validateExplicit() error {
	if c.retriesSet && c.Collector.MaxRetries < 1 {
		return fmt.Errorf("collector.max_retries must be at least 1, got %d", c.Collector.MaxRetries)
	}
	if c.Collector.BackoffBase < 0 {
		return fmt.Errorf("collector.backoff_base must not be negative, got %s", c.Collector.BackoffBase)
	}
	return nil
}

func (c *Config) validate() error {
	if c.Collector.MaxRetries < 1 {
		return fmt.Errorf("collector.max_retries must be at least 1")
	}
	switch c.Pipeline.OnQueueFull {
	case "block", "drop", "reject":
	default:
		return fmt.Errorf("pipeline.on_queue_full must be block, drop or reject, got %q", c.Pipeline.OnQueueFull)
	}
	if c.Pipeline.MaxQueueLen < 0 || c.Pipeline.MaxBatchSize < 0 {
		return fmt.Errorf("pipeline sizes must not be negative")
	}
	switch {
	case c.Redis.InProcess(),
		strings.HasPrefix(c.Redis.URL, "redis://"),
		strings.HasPrefix(c.Redis.URL, "rediss://"):
	default:
		return fmt.Errorf("redis.url must use redis://, rediss:// or memory://, got %q", c.Redis.URL)
	}
	if c.Redis.CacheTTL < 0 {
		return fmt.Errorf("redis.cache_ttl must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error", "critical":
	default:
		return fmt.Errorf("log.level %q is not recognised", c.Log.Level)
	}
	return nil
}
