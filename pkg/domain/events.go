package domain

import (
	"context"
	"time"
)

// TransitionEvent describes the handling of one inbound event.
type TransitionEvent struct {
	Timestamp     time.Time `json:"timestamp"`
	ParticipantID string    `json:"participant_id"`
	From          State     `json:"from"`
	To            State     `json:"to"`
	Kind          EventKind `json:"kind"`
}

// LifecycleHooks defines callbacks for engine observability.
// Hooks run synchronously while the participant lock is held and must not block.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnReject     func(context.Context, *TransitionEvent)
	OnComplete   func(context.Context, *TransitionEvent)
	OnCancel     func(context.Context, *TransitionEvent)
}
