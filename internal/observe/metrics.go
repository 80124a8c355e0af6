// Package observe provides observability primitives for autocue:
// OpenTelemetry metrics, tracing, structured logging helpers, and HTTP
// middleware tying them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so metrics can be scraped
// from the standard /metrics endpoint. Tests should use [NewMetrics] with a
// custom [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all autocue metrics.
const meterName = "github.com/EdNutting/autocue"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// UpdateDuration tracks tracking-engine update latency.
	UpdateDuration metric.Float64Histogram

	// ValidationDuration tracks the sliding-window validation pass latency.
	ValidationDuration metric.Float64Histogram

	// TranscriptionDuration tracks ASR provider chunk processing latency.
	TranscriptionDuration metric.Float64Histogram

	// Corrections counts position corrections. Use with attribute:
	//   attribute.String("kind", "backtrack"|"forward_jump"|"drift")
	Corrections metric.Int64Counter

	// DroppedUpdates counts transcript updates rejected under backpressure.
	// Use with attribute:
	//   attribute.String("kind", "partial"|"final")
	DroppedUpdates metric.Int64Counter

	// QueueDepth tracks the number of requests waiting for the tracker
	// worker.
	QueueDepth metric.Int64UpDownCounter

	// ConnectedClients tracks the number of live display connections.
	ConnectedClients metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// real-time tracking latencies, which sit well under typical HTTP buckets.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.UpdateDuration, err = m.Float64Histogram("autocue.track.update.duration",
		metric.WithDescription("Latency of one tracking-engine update."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ValidationDuration, err = m.Float64Histogram("autocue.track.validation.duration",
		metric.WithDescription("Latency of one validation window search."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("autocue.asr.duration",
		metric.WithDescription("Latency of ASR chunk transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Corrections, err = m.Int64Counter("autocue.track.corrections",
		metric.WithDescription("Total position corrections by kind."),
	); err != nil {
		return nil, err
	}
	if met.DroppedUpdates, err = m.Int64Counter("autocue.track.dropped_updates",
		metric.WithDescription("Total transcript updates dropped under backpressure, by kind."),
	); err != nil {
		return nil, err
	}

	if met.QueueDepth, err = m.Int64UpDownCounter("autocue.track.queue_depth",
		metric.WithDescription("Requests waiting for the tracker worker."),
	); err != nil {
		return nil, err
	}
	if met.ConnectedClients, err = m.Int64UpDownCounter("autocue.server.connected_clients",
		metric.WithDescription("Number of live display connections."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("autocue.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCorrection records a position correction of the given kind.
func (m *Metrics) RecordCorrection(ctx context.Context, kind string) {
	m.Corrections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordDroppedUpdate records a transcript update rejected under
// backpressure.
func (m *Metrics) RecordDroppedUpdate(ctx context.Context, kind string) {
	m.DroppedUpdates.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
