package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ConsumerMetrics records event consumer outcomes.
type ConsumerMetrics struct {
	processed *prometheus.CounterVec
	failed    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// NewConsumerMetrics registers the consumer metrics on the provided registerer.
func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_events_processed_total",
		Help: "Events processed per consumer.",
	}, []string{"consumer"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_events_failed_total",
		Help: "Events that failed handling per consumer.",
	}, []string{"consumer"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "consumer_handle_duration_seconds",
		Help:    "Duration of event handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"consumer"})
	reg.MustRegister(processed, failed, duration)
	return &ConsumerMetrics{
		processed: processed,
		failed:    failed,
		duration:  duration,
	}
}

// IncProcessed increments the processed counter for the consumer.
func (c *ConsumerMetrics) IncProcessed(consumer string) {
	if c == nil || c.processed == nil {
		return
	}
	c.processed.WithLabelValues(normalizeLabel(consumer)).Inc()
}

// IncFailed increments the failure counter for the consumer.
func (c *ConsumerMetrics) IncFailed(consumer string) {
	if c == nil || c.failed == nil {
		return
	}
	c.failed.WithLabelValues(normalizeLabel(consumer)).Inc()
}

// ObserveHandleDuration records how long one event took to handle.
func (c *ConsumerMetrics) ObserveHandleDuration(consumer string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(consumer)).Observe(duration.Seconds())
}
