package observability

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"sweeper/core/events"
	"sweeper/native/forwarder"
	"sweeper/observability/metrics"
)

type eventMetrics struct {
	emitted   *prometheus.CounterVec
	transfers *prometheus.CounterVec
	// sweeps mirrors completed flushes to the OTLP pipeline; it is a no-op
	// until telemetry installs a meter provider.
	sweeps metric.Int64Counter
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking committed ledger events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sweeper",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed events segmented by type.",
			}, []string{"type"}),
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sweeper",
				Subsystem: "events",
				Name:      "transfers_total",
				Help:      "Count of balance movements segmented by asset kind.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(eventRegistry.emitted, eventRegistry.transfers)
		sweeps, err := otel.Meter("sweeper/observability").Int64Counter("sweeper.forwarder.sweeps",
			metric.WithDescription("Completed forwarder sweeps by asset kind."))
		if err == nil {
			eventRegistry.sweeps = sweeps
		}
	})
	return eventRegistry
}

// RecordTransfer increments the transfer counter for the supplied asset kind.
func (m *eventMetrics) RecordTransfer(asset string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(asset))
	if normalized == "" {
		normalized = "unknown"
	}
	m.transfers.WithLabelValues(normalized).Inc()
}

// Emit implements events.Emitter so the registry can sit behind the node's
// post-commit fan-out.
func (m *eventMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	m.emitted.WithLabelValues(evt.EventType()).Inc()
	switch evt.EventType() {
	case events.TypeTransfer:
		asset := "token"
		if payload := events.Canonical(evt); payload != nil && payload.Attributes["asset"] == events.AssetNative {
			asset = events.AssetNative
		}
		m.RecordTransfer(asset)
	case forwarder.EventTypeFlushedNative:
		m.recordSweep("native", evt)
	case forwarder.EventTypeFlushedToken:
		m.recordSweep("token", evt)
	}
}

// recordSweep feeds the swept-units counter from a flushed event's amount.
func (m *eventMetrics) recordSweep(asset string, evt events.Event) {
	payload := events.Canonical(evt)
	if payload == nil {
		return
	}
	amount, ok := new(big.Float).SetString(payload.Attributes["amount"])
	if !ok {
		return
	}
	units, _ := amount.Float64()
	metrics.Sweeper().AddSwept(asset, units)
	if m.sweeps != nil {
		m.sweeps.Add(context.Background(), 1, metric.WithAttributes(attribute.String("asset", asset)))
	}
}
