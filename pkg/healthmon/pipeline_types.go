package healthmon

import (
	"github.com/kateb7566/system-health-monitor-etl/internal/domain"
	"github.com/kateb7566/system-health-monitor-etl/internal/ports"
)

// Sample is one host telemetry snapshot as it flows through the pipeline,
// the bus and the record store.
type Sample = domain.Sample

// Sampler reads the host once. Custom samplers can replace the gopsutil one.
type Sampler = ports.Sampler

// Collector streams validated samples into the pipeline.
type Collector = ports.Collector

// SampleQueue is the bounded, in-memory queue between collection and the sinks.
type SampleQueue = ports.SampleQueue

// Transformer validates and normalizes samples before they are published.
type Transformer = ports.Transformer

// Sink receives every validated sample.
type Sink = ports.Sink

// Bus is the publish/subscribe transport behind the live viewer.
type Bus = ports.Bus

// Subscription is one registered consumer of a bus channel.
type Subscription = ports.Subscription

// Message is one payload delivered on a bus channel.
type Message = ports.Message

// RecencyCache holds the most recent samples under a shared TTL.
type RecencyCache = ports.RecencyCache

// Store is the durable record collaborator.
type Store = ports.Store

// Observability emits logs and metrics.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// ErrNotFound is returned when a record or cache position does not exist.
var ErrNotFound = ports.ErrNotFound
