package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeConflict     = "conflict"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
	OutcomeLimited      = "rate_limited"
)

var AuthAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "podpal_auth_attempts_total",
		Help: "Signup and login attempts by operation and outcome",
	},
	[]string{"operation", "outcome"},
)

var Uploads = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "podpal_uploads_total",
		Help: "Podcast uploads by outcome",
	},
	[]string{"outcome"},
)

var Transcriptions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "podpal_transcriptions_total",
		Help: "Transcription jobs reaching a status",
	},
	[]string{"status"},
)

var RequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "podpal_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

// RegisterMetrics registers the package collectors. Panics on duplicate registration.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts, Uploads, Transcriptions, RequestDuration)
}

func RecordAuthAttempt(operation, outcome string) {
	AuthAttempts.WithLabelValues(operation, outcome).Inc()
}

func RecordUpload(outcome string) {
	Uploads.WithLabelValues(outcome).Inc()
}

func RecordTranscription(status string) {
	Transcriptions.WithLabelValues(status).Inc()
}

func RecordRequest(method, route, status string, d time.Duration) {
	RequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}
