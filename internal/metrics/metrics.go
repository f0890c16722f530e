package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ClassifierCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gesture_classifier_calls_total",
			Help: "Classifier calls by kind (gesture, pointing) and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ClassifierDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gesture_classifier_duration_seconds",
			Help:    "Latency of classifier calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"kind"},
	)

	AnalysisPauses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gesture_analysis_pauses_total",
			Help: "Times a session observed the rate-limit cooldown",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gesture_quiz_active_sessions",
			Help: "Quiz sessions currently registered",
		},
	)

	AttemptsFinalized = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gesture_quiz_attempts_finalized_total",
			Help: "Finalized attempts by mode (saved, preview, failed)",
		},
		[]string{"mode"},
	)
)

// Register adds the collectors to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(ClassifierCalls, ClassifierDuration, AnalysisPauses, ActiveSessions, AttemptsFinalized)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
