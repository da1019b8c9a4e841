package observability

import (
	"context"
	"time"

	"github.com/aretw0/formbot/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Dialogue results for formbot_dialogues_total.
const (
	ResultCompleted = "completed"
	ResultCancelled = "cancelled"
)

// Metrics holds the collectors for one engine.
type Metrics struct {
	Events        *prometheus.CounterVec
	EventDuration *prometheus.HistogramVec
	Transitions   *prometheus.CounterVec
	Rejections    *prometheus.CounterVec
	Dialogues     *prometheus.CounterVec
	MessagesSent  *prometheus.CounterVec
	APIFailures   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formbot_events_total",
				Help: "Count of processed inbound events",
			},
			[]string{"kind", "outcome"},
		),
		EventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "formbot_event_duration_seconds",
				Help:    "Time taken to process one inbound event",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"kind"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formbot_transitions_total",
				Help: "Count of state transitions",
			},
			[]string{"from", "to"},
		),
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formbot_rejections_total",
				Help: "Count of answers rejected by validation",
			},
			[]string{"state"},
		),
		Dialogues: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formbot_dialogues_total",
				Help: "Count of finished dialogues",
			},
			[]string{"result"},
		),
		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formbot_messages_sent_total",
				Help: "Count of messages sent to a chat platform",
			},
			[]string{"type"}, // message, edit, delete, photo
		),
		APIFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "formbot_api_failures_total",
				Help: "Count of failed chat platform API calls",
			},
			[]string{"method"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.Events,
			m.EventDuration,
			m.Transitions,
			m.Rejections,
			m.Dialogues,
			m.MessagesSent,
			m.APIFailures,
		)
	}
	return m
}

// ObserveEvent records one processed event. Its signature matches runner.Observer.
func (m *Metrics) ObserveEvent(kind domain.EventKind, outcome string, elapsed time.Duration) {
	m.Events.WithLabelValues(string(kind), outcome).Inc()
	m.EventDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// Hooks returns lifecycle hooks feeding the transition and dialogue counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.From.String(), e.To.String()).Inc()
		},
		OnReject: func(_ context.Context, e *domain.TransitionEvent) {
			m.Rejections.WithLabelValues(e.From.String()).Inc()
		},
		OnComplete: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.From.String(), e.To.String()).Inc()
			m.Dialogues.WithLabelValues(ResultCompleted).Inc()
		},
		OnCancel: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.From.String(), e.To.String()).Inc()
			m.Dialogues.WithLabelValues(ResultCancelled).Inc()
		},
	}
}
