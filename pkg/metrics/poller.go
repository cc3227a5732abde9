package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PollerMetrics records metadata for the alert polling loop.
type PollerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	unseen   prometheus.Gauge
}

// NewPollerMetrics registers the poller metrics on the provided registerer.
func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	if reg == nil {
		return &PollerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "poll_duration_seconds",
		Help:    "Duration of backend polls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_success",
		Help: "Successful backend polls.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poll_failure",
		Help: "Failed backend polls.",
	}, []string{"operation"})
	unseen := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "alerts_unseen",
		Help: "Number of alerts the user has not yet seen.",
	})
	reg.MustRegister(duration, success, failure, unseen)
	return &PollerMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		unseen:   unseen,
	}
}

// ObserveDuration records the duration for the named poll operation.
func (p *PollerMetrics) ObserveDuration(operation string, duration time.Duration) {
	if p == nil || p.duration == nil {
		return
	}
	p.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named poll operation.
func (p *PollerMetrics) IncSuccess(operation string) {
	if p == nil || p.success == nil {
		return
	}
	p.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named poll operation.
func (p *PollerMetrics) IncFailure(operation string) {
	if p == nil || p.failure == nil {
		return
	}
	p.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// SetUnseen records the freshly computed unseen alert count.
func (p *PollerMetrics) SetUnseen(count int) {
	if p == nil || p.unseen == nil {
		return
	}
	p.unseen.Set(float64(count))
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
