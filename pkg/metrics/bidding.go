package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BiddingMetrics records bid submission outcomes and latency.
type BiddingMetrics struct {
	accepted *prometheus.CounterVec
	rejected *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewBiddingMetrics registers the bidding metrics on the provided registerer.
func NewBiddingMetrics(reg prometheus.Registerer) *BiddingMetrics {
	if reg == nil {
		return &BiddingMetrics{}
	}
	accepted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_accepted_total",
		Help: "Accepted bid submissions.",
	}, []string{"room"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_rejected_total",
		Help: "Rejected bid submissions by reason.",
	}, []string{"reason"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bid_submit_duration_seconds",
		Help:    "Duration of bid submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"room"})
	reg.MustRegister(accepted, rejected, duration)
	return &BiddingMetrics{
		accepted: accepted,
		rejected: rejected,
		duration: duration,
	}
}

// IncAccepted increments the accepted counter for the room.
func (b *BiddingMetrics) IncAccepted(room string) {
	if b == nil || b.accepted == nil {
		return
	}
	b.accepted.WithLabelValues(normalizeLabel(room)).Inc()
}

// IncRejected increments the rejected counter for the given reason.
func (b *BiddingMetrics) IncRejected(reason string) {
	if b == nil || b.rejected == nil {
		return
	}
	b.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveSubmitDuration records how long a bid submission took.
func (b *BiddingMetrics) ObserveSubmitDuration(room string, duration time.Duration) {
	if b == nil || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(normalizeLabel(room)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
