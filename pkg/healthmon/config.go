package healthmon

import (
	"github.com/kateb7566/system-health-monitor-etl/internal/adapters/httpapi"
	"github.com/kateb7566/system-health-monitor-etl/internal/app/collector"
	"github.com/kateb7566/system-health-monitor-etl/internal/app/config"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// CollectorConfig sets the collection interval, timeout and retry bound.
	CollectorConfig = collector.Config
	// Policy controls queue thresholds between collection and the sinks.
	Policy = ports.Policy
	// RedisConfig selects the bus and cache backend.
	RedisConfig = config.RedisConfig
	// DatabaseConfig points at the durable record store.
	DatabaseConfig = config.DatabaseConfig
	// HTTPConfig configures the records API and live viewer.
	HTTPConfig = httpapi.Config
	// LogConfig sets the log level.
	LogConfig = config.LogConfig
)

// LoadConfig loads YAML from disk and overlays the environment.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// LoadConfigFromEnv builds a configuration from defaults and environment
// variables only.
func LoadConfigFromEnv() (*Config, error) {
	return config.LoadFromEnv()
}
