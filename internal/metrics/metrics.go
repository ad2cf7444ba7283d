// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsActive is the number of live sessions in the registry.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "psykos_sessions_active",
			Help: "Number of live game sessions",
		},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psykos_transitions_total",
			Help: "Committed session transitions by kind",
		},
		[]string{"kind"},
	)

	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psykos_rejections_total",
			Help: "Rejected session events by error code",
		},
		[]string{"code"},
	)

	promptRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psykos_prompt_requests_total",
			Help: "Content provider calls by outcome",
		},
		[]string{"outcome"},
	)

	promptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "psykos_prompt_duration_seconds",
			Help:    "Content provider call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		},
	)

	// ConnectionsOpen is the number of bound websocket connections.
	ConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "psykos_ws_connections_open",
			Help: "Number of open websocket connections",
		},
	)

	voiceFramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "psykos_voice_frames_relayed_total",
			Help: "Binary voice frames relayed to other members",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psykos_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "psykos_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route"},
	)
)

// RecordTransition counts one committed transition.
func RecordTransition(kind string) {
	transitionsTotal.WithLabelValues(kind).Inc()
}

// RecordRejection counts one rejected event.
func RecordRejection(code string) {
	rejectionsTotal.WithLabelValues(code).Inc()
}

// RecordPromptRequest records a content provider call. outcome is "ok", "fallback" or "error".
func RecordPromptRequest(outcome string, duration time.Duration) {
	promptRequestsTotal.WithLabelValues(outcome).Inc()
	promptDuration.Observe(duration.Seconds())
}

func RecordVoiceFrame() {
	voiceFramesTotal.Inc()
}

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
