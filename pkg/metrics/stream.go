package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StreamMetrics tracks live room stream fan-out health.
type StreamMetrics struct {
	observers prometheus.Gauge
	published *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// NewStreamMetrics registers the stream metrics on the provided registerer.
func NewStreamMetrics(reg prometheus.Registerer) *StreamMetrics {
	if reg == nil {
		return &StreamMetrics{}
	}
	observers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "stream_observers",
		Help: "Currently connected room stream observers.",
	})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_events_published_total",
		Help: "Events published to room streams.",
	}, []string{"room"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_observers_dropped_total",
		Help: "Observers disconnected because their buffer overflowed.",
	}, []string{"room"})
	reg.MustRegister(observers, published, dropped)
	return &StreamMetrics{
		observers: observers,
		published: published,
		dropped:   dropped,
	}
}

// ObserverConnected increments the connected observer gauge.
func (s *StreamMetrics) ObserverConnected() {
	if s == nil || s.observers == nil {
		return
	}
	s.observers.Inc()
}

// ObserverDisconnected decrements the connected observer gauge.
func (s *StreamMetrics) ObserverDisconnected() {
	if s == nil || s.observers == nil {
		return
	}
	s.observers.Dec()
}

// IncPublished increments the published event counter for the room.
func (s *StreamMetrics) IncPublished(room string) {
	if s == nil || s.published == nil {
		return
	}
	s.published.WithLabelValues(normalizeLabel(room)).Inc()
}

// IncDropped increments the overflow disconnect counter for the room.
func (s *StreamMetrics) IncDropped(room string) {
	if s == nil || s.dropped == nil {
		return
	}
	s.dropped.WithLabelValues(normalizeLabel(room)).Inc()
}
