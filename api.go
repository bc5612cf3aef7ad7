package healthmon

import (
	base "github.com/kateb7566/system-health-monitor-etl/pkg/healthmon"
)

// Re-exported errors for convenience.
var (
	ErrNotFound          = base.ErrNotFound
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import the module root directly.
type (
	Config          = base.Config
	CollectorConfig = base.CollectorConfig
	Policy          = base.Policy
	RedisConfig     = base.RedisConfig
	DatabaseConfig  = base.DatabaseConfig
	HTTPConfig      = base.HTTPConfig
	LogConfig       = base.LogConfig
	Runtime         = base.Runtime
	RuntimeOption   = base.RuntimeOption
	Sample          = base.Sample
	SampleHandler   = base.SampleHandler
	Sampler         = base.Sampler
	Collector       = base.Collector
	Sink            = base.Sink
	Transformer     = base.Transformer
	SampleQueue     = base.SampleQueue
	Bus             = base.Bus
	Subscription    = base.Subscription
	Message         = base.Message
	RecencyCache    = base.RecencyCache
	Store           = base.Store
	Observability   = base.Observability
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func LoadConfigFromEnv() (*Config, error) {
	return base.LoadConfigFromEnv()
}

// Conf loads a config file and builds a Runtime from it.
func Conf(path string, opts ...RuntimeOption) (*Runtime, error) {
	return base.Conf(path, opts...)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithSampler(s Sampler) RuntimeOption {
	return base.WithSampler(s)
}

func WithBus(b Bus) RuntimeOption {
	return base.WithBus(b)
}

func WithCache(c RecencyCache) RuntimeOption {
	return base.WithCache(c)
}

func WithStore(s Store) RuntimeOption {
	return base.WithStore(s)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithTransformer(tr Transformer) RuntimeOption {
	return base.WithTransformer(tr)
}

func WithSampleQueue(q SampleQueue) RuntimeOption {
	return base.WithSampleQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Sink adapters.
func NewCallbackSink(name string, fn SampleHandler) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan *Sample, func()) {
	return base.NewChannelSink(name, buffer)
}
