package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/formbot"
	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/adapters/memory"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/observability"
	"github.com/aretw0/formbot/pkg/runner"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Dialogue(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	eng, err := formbot.New(memory.NewStore(), memory.NewProfiles(),
		formbot.WithLifecycleHooks(metrics.Hooks()))
	require.NoError(t, err)
	r := runner.New(eng, runner.WithObserver(metrics.ObserveEvent))
	ctx := context.Background()

	events := []domain.Event{
		domain.TextEvent("/fillform"),
		domain.TextEvent("R2D2"), // rejected
		domain.TextEvent("Alice"),
		domain.TextEvent("30"),
		domain.ButtonEvent("female"),
		domain.ImageEvent(domain.ImageVariant{FileID: "f", UniqueID: "u", Width: 1, Height: 1}),
		domain.ButtonEvent("no_education"),
		domain.ButtonEvent("declined"),
		domain.TextEvent("/fillform"),
		domain.TextEvent("/cancel"),
	}
	for _, ev := range events {
		_, err := r.Dispatch(ctx, "1", ev)
		require.NoError(t, err)
	}

	assert.Equal(t, float64(6), testutil.ToFloat64(metrics.Events.WithLabelValues("text", runner.OutcomeOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Events.WithLabelValues("image", runner.OutcomeOK)))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.Events.WithLabelValues("button", runner.OutcomeOK)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Rejections.WithLabelValues("AWAIT_NAME")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Transitions.WithLabelValues("NONE", "AWAIT_NAME")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Transitions.WithLabelValues("AWAIT_NEWS", "NONE")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dialogues.WithLabelValues(observability.ResultCompleted)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dialogues.WithLabelValues(observability.ResultCancelled)))
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.EventDuration))
}

func TestMetrics_NilRegistererAndDoubleRegistration(t *testing.T) {
	assert.NotPanics(t, func() { observability.NewMetrics(nil) })

	reg := prometheus.NewRegistry()
	observability.NewMetrics(reg)
	assert.Panics(t, func() { observability.NewMetrics(reg) })
}

func TestMetrics_ObserveEvent(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	metrics.ObserveEvent(domain.EventButton, runner.OutcomeError, 10*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Events.WithLabelValues("button", runner.OutcomeError)))
}

func TestComposeHooks(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) { order = append(order, "a") },
	}
	b := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) { order = append(order, "b") },
		OnCancel:     func(context.Context, *domain.TransitionEvent) { order = append(order, "b-cancel") },
	}

	hooks := observability.ComposeHooks(a, domain.LifecycleHooks{}, b)
	require.NotNil(t, hooks.OnTransition)
	assert.Nil(t, hooks.OnReject)

	hooks.OnTransition(context.Background(), &domain.TransitionEvent{})
	hooks.OnCancel(context.Background(), &domain.TransitionEvent{})
	assert.Equal(t, []string{"a", "b", "b-cancel"}, order)
}

func TestAuditHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriter(&buf, slog.LevelInfo, "text")
	hooks := observability.AuditHooks(logger)

	ev := &domain.TransitionEvent{ParticipantID: "7", From: domain.StateAwaitName, To: domain.StateAwaitAge, Kind: domain.EventText}
	hooks.OnTransition(context.Background(), ev)
	hooks.OnReject(context.Background(), ev)

	out := buf.String()
	assert.Contains(t, out, "Dialogue advanced")
	assert.Contains(t, out, "participant_id=7")
	assert.NotContains(t, out, "Answer rejected", "rejections log at debug only")
}
