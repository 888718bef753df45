package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/d4l-data4life/ollama-chat/pkg/config"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

// Metric definitions
// Ensure that his follows best practices for naming: https://prometheus.io/docs/practices/naming/
var (
	metricNamePrefix = "ollama_chat"

	// TurnsTotal counts resolved chat turns by outcome
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "turns_total",
			Help:      "Number of chat turns by outcome (completed, failed).",
		},
		[]string{"outcome"},
	)

	// InferenceDuration observes the round trip of one chat completion
	InferenceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricNamePrefix,
			Name:      "inference_duration_seconds",
			Help:      "Duration of chat completion requests to the inference server.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	// TranscriptionsTotal counts transcription attempts by outcome
	TranscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "transcriptions_total",
			Help:      "Number of transcription requests by outcome (ok, no_speech, failed).",
		},
		[]string{"outcome"},
	)

	// RejectedRequestsTotal counts local API requests refused for a wrong service secret
	RejectedRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricNamePrefix,
			Name:      "rejected_requests_total",
			Help:      "Number of local API requests rejected by the service secret check.",
		},
	)
)

// Turn outcomes
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// AddBuildInfoMetric adds a static metric with the build information
func AddBuildInfoMetric() {
	err := prometheus.Register(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: metricNamePrefix,
			Name:      "build_info",
			Help:      "A metric with a constant '1' value labeled by version, branch, commit, build date, and goversion.",
			ConstLabels: prometheus.Labels{
				"version":   config.Version,
				"branch":    config.Branch,
				"commit":    config.Commit,
				"goversion": config.GoVersion,
			},
		},
		func() float64 { return 1 },
	))
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		logging.LogErrorf(err, "Error registering build info metric")
	}
}

// AddChatMetrics registers the chat collectors; repeated calls are harmless
func AddChatMetrics() {
	for _, c := range []prometheus.Collector{TurnsTotal, InferenceDuration, TranscriptionsTotal, RejectedRequestsTotal} {
		if err := prometheus.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				logging.LogErrorf(err, "Error registering chat metric")
			}
		}
	}
}

// ObserveTurn records the outcome and latency of one turn
func ObserveTurn(model string, d time.Duration, err error) {
	outcome := OutcomeCompleted
	if err != nil {
		outcome = OutcomeFailed
	}
	TurnsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		InferenceDuration.WithLabelValues(model).Observe(d.Seconds())
	}
}
