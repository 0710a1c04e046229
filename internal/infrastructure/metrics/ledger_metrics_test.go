package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestLedgerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.ObserveOperation("allocate", "ok", 20*time.Millisecond)
	m.ObserveOperation("allocate", "ok", 10*time.Millisecond)
	m.ObserveOperation("allocate", "insufficient_stock", time.Millisecond)
	m.ObserveRetry("concurrency_conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("allocate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("allocate", "insufficient_stock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retries.WithLabelValues("concurrency_conflict")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}
