package codegen

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aimhigh31/work-ten-sub018/internal/counter"
)

// Metrics holds the allocator's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	allocations  *prometheus.CounterVec
	failures     *prometheus.CounterVec
	retries      prometheus.Counter
	duration     prometheus.Histogram
	counterValue *prometheus.GaugeVec
}

// NewMetrics registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		allocations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeseq_allocations_total",
			Help: "Successfully allocated codes",
		}, []string{"module_type"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeseq_allocation_failures_total",
			Help: "Failed allocations by reason",
		}, []string{"reason"}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Name: "codeseq_allocation_retries_total",
			Help: "Store calls retried after the store was unavailable",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "codeseq_allocation_duration_seconds",
			Help:    "Allocation latency including retries",
			Buckets: prometheus.DefBuckets,
		}),
		counterValue: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "codeseq_counter_value",
			Help: "Last issued sequence number per module type and year",
		}, []string{"module_type", "year"}),
	}
}

func (m *Metrics) observeSuccess(moduleType string, d time.Duration) {
	if m == nil {
		return
	}
	m.allocations.WithLabelValues(moduleType).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeFailure(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(failureReason(err)).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// SetCounters replaces the counter gauge with the given snapshot.
func (m *Metrics) SetCounters(recs []counter.Record) {
	if m == nil {
		return
	}
	m.counterValue.Reset()
	for _, r := range recs {
		m.counterValue.WithLabelValues(r.ModuleType, strconv.Itoa(r.Year)).Set(float64(r.Value))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, counter.ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, counter.ErrConflict):
		return "conflict"
	default:
		return "internal"
	}
}
