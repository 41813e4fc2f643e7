package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DealSaveMetrics records outcomes of deal aggregate saves.
type DealSaveMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	replaced prometheus.Counter
}

// NewDealSaveMetrics registers the deal save metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewDealSaveMetrics(reg prometheus.Registerer) *DealSaveMetrics {
	if reg == nil {
		return &DealSaveMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deal_save_duration_seconds",
		Help:    "Duration of deal aggregate saves in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_save_success_total",
		Help: "Successful deal aggregate saves.",
	}, []string{"op"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deal_save_failure_total",
		Help: "Failed deal aggregate saves by step.",
	}, []string{"op", "step"})
	replaced := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deal_line_items_replaced_total",
		Help: "Line item rows written by replace operations.",
	})
	reg.MustRegister(duration, success, failure, replaced)
	return &DealSaveMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		replaced: replaced,
	}
}

// ObserveDuration records how long a save operation took.
func (m *DealSaveMetrics) ObserveDuration(op string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

func (m *DealSaveMetrics) IncSuccess(op string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncFailure counts a failed save; step names the stage that failed (validate, parent,
// transaction, line_items, reload).
func (m *DealSaveMetrics) IncFailure(op, step string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(op), normalizeLabel(step)).Inc()
}

func (m *DealSaveMetrics) AddLineItemsReplaced(n int) {
	if m == nil || m.replaced == nil || n <= 0 {
		return
	}
	m.replaced.Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
