package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records vault ledger activity for scraping.
type LedgerMetrics struct {
	operations   *prometheus.CounterVec
	liquidations prometheus.Counter
	vaults       prometheus.Gauge
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *LedgerMetrics
)

// Metrics returns the lazily-initialised ledger metrics registry.
func Metrics() *LedgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stablevault",
				Subsystem: "ledger",
				Name:      "operations_total",
				Help:      "Total ledger operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "stablevault",
				Subsystem: "ledger",
				Name:      "liquidations_total",
				Help:      "Total risky-vault buyouts executed.",
			}),
			vaults: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "stablevault",
				Subsystem: "ledger",
				Name:      "vaults",
				Help:      "Number of existing vaults.",
			}),
		}
		prometheus.MustRegister(ledgerRegistry.operations, ledgerRegistry.liquidations, ledgerRegistry.vaults)
	})
	return ledgerRegistry
}

// ObserveOperation counts one operation attempt with its outcome.
func (m *LedgerMetrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// ObserveLiquidation counts one executed buyout.
func (m *LedgerMetrics) ObserveLiquidation() {
	if m == nil {
		return
	}
	m.liquidations.Inc()
}

// SetVaultCount updates the live vault gauge.
func (m *LedgerMetrics) SetVaultCount(n uint64) {
	if m == nil {
		return
	}
	m.vaults.Set(float64(n))
}
