package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/Bodega-api/internal/application/stock"
)

var _ stock.Metrics = (*LedgerMetrics)(nil)

// LedgerMetrics métricas Prometheus del ledger de stock.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retries    *prometheus.CounterVec
}

// NewLedgerMetrics crea y registra los colectores en reg.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	m := &LedgerMetrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bodega",
				Subsystem: "stock",
				Name:      "operations_total",
				Help:      "Operaciones del ledger por tipo y resultado",
			},
			[]string{"op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "bodega",
				Subsystem: "stock",
				Name:      "operation_duration_seconds",
				Help:      "Duración de las operaciones del ledger",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bodega",
				Subsystem: "stock",
				Name:      "tx_retries_total",
				Help:      "Transacciones reintentadas por motivo",
			},
			[]string{"reason"},
		),
	}
	reg.MustRegister(m.operations, m.duration, m.retries)
	return m
}

// ObserveOperation registra una operación terminada.
func (m *LedgerMetrics) ObserveOperation(op, outcome string, elapsed time.Duration) {
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveRetry registra un reintento de transacción.
func (m *LedgerMetrics) ObserveRetry(reason string) {
	m.retries.WithLabelValues(reason).Inc()
}
