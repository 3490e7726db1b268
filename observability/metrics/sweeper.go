package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the sweeper counters.
const (
	OutcomeOK                 = "ok"
	OutcomeUnauthorized       = "unauthorized"
	OutcomeNullDestination    = "null_destination"
	OutcomeAlreadyInitialized = "already_initialized"
	OutcomeSaltCollision      = "salt_collision"
	OutcomeNotFound           = "not_found"
	OutcomeRejected           = "rejected"
)

type SweeperMetrics struct {
	transactions *prometheus.CounterVec
	clones       *prometheus.CounterVec
	inits        *prometheus.CounterVec
	flushes      *prometheus.CounterVec
	swept        *prometheus.CounterVec
}

var (
	sweeperOnce     sync.Once
	sweeperRegistry *SweeperMetrics
)

// Sweeper returns the lazily registered forwarder metrics.
func Sweeper() *SweeperMetrics {
	sweeperOnce.Do(func() {
		sweeperRegistry = &SweeperMetrics{
			transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sweeper_transactions_total",
				Help: "Count of applied and rejected transactions by type.",
			}, []string{"type", "outcome"}),
			clones: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sweeper_forwarder_clones_total",
				Help: "Count of forwarder clone attempts by outcome.",
			}, []string{"outcome"}),
			inits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sweeper_forwarder_inits_total",
				Help: "Count of direct forwarder init attempts by outcome.",
			}, []string{"outcome"}),
			flushes: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sweeper_forwarder_flushes_total",
				Help: "Count of forwarder flush attempts by asset kind and outcome.",
			}, []string{"asset", "outcome"}),
			swept: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "sweeper_forwarder_swept_units_total",
				Help: "Base units swept to destinations by asset kind. Amounts beyond float precision are approximate.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			sweeperRegistry.transactions,
			sweeperRegistry.clones,
			sweeperRegistry.inits,
			sweeperRegistry.flushes,
			sweeperRegistry.swept,
		)
	})
	return sweeperRegistry
}

func normalize(label, fallback string) string {
	label = strings.TrimSpace(strings.ToLower(label))
	if label == "" {
		return fallback
	}
	return label
}

func (m *SweeperMetrics) ObserveTransaction(txType, outcome string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(normalize(txType, "unknown"), normalize(outcome, OutcomeRejected)).Inc()
}

func (m *SweeperMetrics) ObserveClone(outcome string) {
	if m == nil {
		return
	}
	m.clones.WithLabelValues(normalize(outcome, OutcomeRejected)).Inc()
}

func (m *SweeperMetrics) ObserveInit(outcome string) {
	if m == nil {
		return
	}
	m.inits.WithLabelValues(normalize(outcome, OutcomeRejected)).Inc()
}

// ObserveFlush records a flush attempt. asset is "native" or "token".
func (m *SweeperMetrics) ObserveFlush(asset, outcome string) {
	if m == nil {
		return
	}
	m.flushes.WithLabelValues(normalize(asset, "unknown"), normalize(outcome, OutcomeRejected)).Inc()
}

func (m *SweeperMetrics) AddSwept(asset string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.swept.WithLabelValues(normalize(asset, "unknown")).Add(amount)
}
