package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteQueueMetrics records the lifecycle of background document writes.
type WriteQueueMetrics struct {
	duration  *prometheus.HistogramVec
	enqueued  *prometheus.CounterVec
	succeeded *prometheus.CounterVec
	retried   *prometheus.CounterVec
	failed    *prometheus.CounterVec
	inFlight  prometheus.Gauge
}

// NewWriteQueueMetrics registers the write queue metrics on the provided registerer.
func NewWriteQueueMetrics(reg prometheus.Registerer) *WriteQueueMetrics {
	if reg == nil {
		return &WriteQueueMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "write_queue_job_duration_seconds",
		Help:    "Duration of write queue jobs, across all attempts, in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	enqueued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "write_queue_jobs_enqueued_total",
		Help: "Jobs accepted by the write queue.",
	}, []string{"kind"})
	succeeded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "write_queue_jobs_succeeded_total",
		Help: "Jobs that eventually persisted.",
	}, []string{"kind"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "write_queue_job_retries_total",
		Help: "Attempts that failed and were scheduled again.",
	}, []string{"kind"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "write_queue_jobs_failed_total",
		Help: "Jobs that exhausted their attempts.",
	}, []string{"kind"})
	inFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "write_queue_jobs_in_flight",
		Help: "Jobs queued or running.",
	})
	reg.MustRegister(duration, enqueued, succeeded, retried, failed, inFlight)
	return &WriteQueueMetrics{
		duration:  duration,
		enqueued:  enqueued,
		succeeded: succeeded,
		retried:   retried,
		failed:    failed,
		inFlight:  inFlight,
	}
}

// IncEnqueued counts an accepted job and bumps the in-flight gauge.
func (m *WriteQueueMetrics) IncEnqueued(kind string) {
	if m == nil || m.enqueued == nil {
		return
	}
	m.enqueued.WithLabelValues(normalizeLabel(kind)).Inc()
	m.inFlight.Inc()
}

// IncRetried counts a failed attempt that will be retried.
func (m *WriteQueueMetrics) IncRetried(kind string) {
	if m == nil || m.retried == nil {
		return
	}
	m.retried.WithLabelValues(normalizeLabel(kind)).Inc()
}

// ObserveSuccess records a persisted job.
func (m *WriteQueueMetrics) ObserveSuccess(kind string, duration time.Duration) {
	if m == nil || m.succeeded == nil {
		return
	}
	label := normalizeLabel(kind)
	m.succeeded.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
	m.inFlight.Dec()
}

// ObserveFailure records a job that exhausted its attempts.
func (m *WriteQueueMetrics) ObserveFailure(kind string, duration time.Duration) {
	if m == nil || m.failed == nil {
		return
	}
	label := normalizeLabel(kind)
	m.failed.WithLabelValues(label).Inc()
	m.duration.WithLabelValues(label).Observe(duration.Seconds())
	m.inFlight.Dec()
}

func normalizeLabel(kind string) string {
	if kind == "" {
		return "unknown"
	}
	return kind
}
