// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ChannelSendDuration tracks how long channel sends take.
	ChannelSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "channel_send_duration_seconds",
			Help:    "Channel send duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"channel"},
	)

	// MessagesTotal tracks routed messages per channel and outcome.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "routed_messages_total",
			Help: "Total messages routed per channel",
		},
		[]string{"channel", "outcome"},
	)

	// TransfersTotal tracks channel transfers per route and reason.
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_transfers_total",
			Help: "Total channel transfers by route",
		},
		[]string{"from", "to", "reason"},
	)

	// ProbeDuration tracks health probe duration per channel.
	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "health_probe_duration_seconds",
			Help:    "Health probe duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"channel", "status"},
	)

	// ActiveSessions tracks live conversation sessions.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Number of live conversation sessions",
		},
	)

	// StaffHandoffsTotal tracks sessions handed to human staff.
	StaffHandoffsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "staff_handoffs_total",
			Help: "Total sessions handed to human staff",
		},
	)

	// TelemetryBufferSize tracks the usage-metric ring buffer length.
	TelemetryBufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "telemetry_buffer_size",
			Help: "Entries in the usage-metric ring buffer",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveChannelSend records one channel send duration.
func ObserveChannelSend(channel string, seconds float64) {
	ChannelSendDuration.WithLabelValues(channel).Observe(seconds)
}

// ObserveProbe records one health probe outcome.
func ObserveProbe(channel, status string, seconds float64) {
	ProbeDuration.WithLabelValues(channel, status).Observe(seconds)
}

// SetTelemetryBufferSize updates the ring buffer gauge.
func SetTelemetryBufferSize(n int) {
	TelemetryBufferSize.Set(float64(n))
}
