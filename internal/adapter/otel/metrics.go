// Package otel provides metric instruments and HTTP instrumentation for craftd.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "craftd"

// Metrics holds all craftd metric instruments. Instruments are created
// against the global meter, which is a no-op unless an SDK is installed.
type Metrics struct {
	MessagesStored     metric.Int64Counter
	TurnsCompleted     metric.Int64Counter
	TurnsFailed        metric.Int64Counter
	BroadcastsSent     metric.Int64Counter
	ConnectionsActive  metric.Int64UpDownCounter
	CompletionDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.MessagesStored, err = meter.Int64Counter("craftd.messages.stored",
		metric.WithDescription("Number of messages persisted"))
	if err != nil {
		return nil, err
	}

	m.TurnsCompleted, err = meter.Int64Counter("craftd.turns.completed",
		metric.WithDescription("Number of chat turns completed"))
	if err != nil {
		return nil, err
	}

	m.TurnsFailed, err = meter.Int64Counter("craftd.turns.failed",
		metric.WithDescription("Number of chat turns that ended in an error"))
	if err != nil {
		return nil, err
	}

	m.BroadcastsSent, err = meter.Int64Counter("craftd.broadcasts.sent",
		metric.WithDescription("Number of project broadcasts"))
	if err != nil {
		return nil, err
	}

	m.ConnectionsActive, err = meter.Int64UpDownCounter("craftd.connections.active",
		metric.WithDescription("Number of live chat connections"))
	if err != nil {
		return nil, err
	}

	m.CompletionDuration, err = meter.Float64Histogram("craftd.completion.duration_seconds",
		metric.WithDescription("Completion provider latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
