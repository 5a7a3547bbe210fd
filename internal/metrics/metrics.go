package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes used as the "outcome" label
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Metrics holds all Prometheus metrics for pipectl
type Metrics struct {
	// Submission metrics
	TaskSubmissions *prometheus.CounterVec

	// Fetch metrics
	TaskFetches  *prometheus.CounterVec
	FetchLatency *prometheus.HistogramVec

	// Polling session metrics
	SessionsStarted   prometheus.Counter
	SessionsEnded     *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge
	StatusTransitions *prometheus.CounterVec

	// Error metrics (by error code from structured errors)
	Errors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		TaskSubmissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipectl_task_submissions_total",
				Help: "Total number of task submissions",
			},
			[]string{"success"},
		),

		TaskFetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipectl_task_fetches_total",
				Help: "Total number of task snapshot fetches",
			},
			[]string{"trigger", "outcome"},
		),
		FetchLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipectl_task_fetch_latency_seconds",
				Help:    "Task snapshot fetch latency in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"trigger"},
		),

		SessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pipectl_poll_sessions_started_total",
				Help: "Total number of polling sessions started",
			},
		),
		SessionsEnded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipectl_poll_sessions_ended_total",
				Help: "Total number of polling sessions ended, by reason",
			},
			[]string{"reason"},
		),
		ActiveSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "pipectl_poll_sessions_active",
				Help: "Number of polling sessions currently active",
			},
		),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipectl_task_status_transitions_total",
				Help: "Observed task status transitions, by new status",
			},
			[]string{"status"},
		),

		Errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipectl_errors_total",
				Help: "Total number of errors by error code",
			},
			[]string{"error_code"},
		),
	}
}

// RecordSubmission counts a submission attempt
func (m *Metrics) RecordSubmission(success bool) {
	m.TaskSubmissions.WithLabelValues(boolLabel(success)).Inc()
}

// RecordFetch counts a fetch and observes its latency.
// trigger is "poll" or "manual".
func (m *Metrics) RecordFetch(trigger, outcome string, elapsed time.Duration) {
	m.TaskFetches.WithLabelValues(trigger, outcome).Inc()
	m.FetchLatency.WithLabelValues(trigger).Observe(elapsed.Seconds())
}

// SessionStarted marks a polling session as active
func (m *Metrics) SessionStarted() {
	m.SessionsStarted.Inc()
	m.ActiveSessions.Inc()
}

// SessionEnded marks a polling session as finished.
// reason is "done", "error" or "cancelled".
func (m *Metrics) SessionEnded(reason string) {
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.ActiveSessions.Dec()
}

// RecordStatus counts a transition into status
func (m *Metrics) RecordStatus(status string) {
	m.StatusTransitions.WithLabelValues(status).Inc()
}

// RecordError counts an error by its code. Uncoded errors count as "unknown".
func (m *Metrics) RecordError(code string) {
	if code == "" {
		code = "unknown"
	}
	m.Errors.WithLabelValues(code).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
