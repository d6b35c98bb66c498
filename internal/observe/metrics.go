// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing helpers, structured logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/beaubromley/bball-stats-sub000"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms ---

	// CorrectionDuration tracks transcript-correction pipeline latency.
	CorrectionDuration metric.Float64Histogram

	// LLMDuration tracks LLM correction latency.
	LLMDuration metric.Float64Histogram

	// --- Interpreter instruments ---

	// CommandsInterpreted counts interpreted voice commands. Use with
	// attribute: attribute.String("type", ...)
	CommandsInterpreted metric.Int64Counter

	// CommandConfidence tracks the confidence assigned to interpreted
	// commands.
	CommandConfidence metric.Float64Histogram

	// TranscriptsRejected counts transcripts that produced no usable
	// command. Use with attribute: attribute.String("reason", ...)
	TranscriptsRejected metric.Int64Counter

	// --- Ledger instruments ---

	// LedgerWrites counts ledger operations. Use with attributes:
	//   attribute.String("op", ...), attribute.String("status", ...)
	LedgerWrites metric.Int64Counter

	// RemoteEvents counts remote ledger events seen by the reconcile
	// poller. Use with attribute: attribute.String("outcome", ...)
	RemoteEvents metric.Int64Counter

	// --- Gauges ---

	// ActiveGames tracks the number of games currently in play.
	ActiveGames metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// the correction pipeline, where an LLM round trip dominates.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// confidenceBuckets covers the discrete confidence levels the interpreter
// assigns plus headroom between them.
var confidenceBuckets = []float64{
	0.1, 0.2, 0.3, 0.5, 0.7, 0.8, 0.85, 0.9, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CorrectionDuration, err = m.Float64Histogram("bball.correction.duration",
		metric.WithDescription("Latency of the transcript correction pipeline."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMDuration, err = m.Float64Histogram("bball.llm.duration",
		metric.WithDescription("Latency of LLM transcript correction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CommandConfidence, err = m.Float64Histogram("bball.command.confidence",
		metric.WithDescription("Confidence of interpreted voice commands."),
		metric.WithExplicitBucketBoundaries(confidenceBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.CommandsInterpreted, err = m.Int64Counter("bball.commands.interpreted",
		metric.WithDescription("Total interpreted voice commands by type."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptsRejected, err = m.Int64Counter("bball.transcripts.rejected",
		metric.WithDescription("Total transcripts rejected by reason."),
	); err != nil {
		return nil, err
	}
	if met.LedgerWrites, err = m.Int64Counter("bball.ledger.writes",
		metric.WithDescription("Total ledger operations by op and status."),
	); err != nil {
		return nil, err
	}
	if met.RemoteEvents, err = m.Int64Counter("bball.reconcile.remote_events",
		metric.WithDescription("Total remote ledger events seen by the reconcile poller, by outcome."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveGames, err = m.Int64UpDownCounter("bball.active_games",
		metric.WithDescription("Number of games currently in play."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("bball.http.request.duration",
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordCommand records one interpreted command with its confidence.
func (m *Metrics) RecordCommand(ctx context.Context, cmdType string, confidence float64) {
	m.CommandsInterpreted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", cmdType)),
	)
	m.CommandConfidence.Record(ctx, confidence,
		metric.WithAttributes(attribute.String("type", cmdType)),
	)
}

// RecordRejectedTranscript records a transcript that produced no usable
// command.
func (m *Metrics) RecordRejectedTranscript(ctx context.Context, reason string) {
	m.TranscriptsRejected.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}

// RecordLedgerWrite records one ledger operation outcome.
func (m *Metrics) RecordLedgerWrite(ctx context.Context, op, status string) {
	m.LedgerWrites.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("status", status),
		),
	)
}

// RecordRemoteEvent records one remote ledger event seen during
// reconciliation.
func (m *Metrics) RecordRemoteEvent(ctx context.Context, outcome string) {
	m.RemoteEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
