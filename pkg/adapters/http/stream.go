package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/domain"
)

// StreamEvent is one server-sent lifecycle notification.
type StreamEvent struct {
	Type string `json:"type"`
	*domain.TransitionEvent
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // ParticipantID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(participantID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[participantID]; !ok {
		sm.subscribers[participantID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[participantID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[participantID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, participantID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(participantID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[participantID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "participant_id", participantID)
		}
	}
}

// Hooks broadcasts every lifecycle event to the participant's subscribers.
// Broadcast never blocks, so the hooks are safe under the participant lock.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	emit := func(kind string) func(context.Context, *domain.TransitionEvent) {
		return func(_ context.Context, e *domain.TransitionEvent) {
			payload, err := json.Marshal(StreamEvent{Type: kind, TransitionEvent: e})
			if err != nil {
				return
			}
			sm.Broadcast(e.ParticipantID, string(payload))
		}
	}
	return domain.LifecycleHooks{
		OnTransition: emit("transition"),
		OnReject:     emit("reject"),
		OnComplete:   emit("complete"),
		OnCancel:     emit("cancel"),
	}
}

// SubscribeEvents handles GET /participants/{id}/stream (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	participantID := chi.URLParam(r, "id")
	ch, cancel := s.Streams.Subscribe(participantID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Debug("SSE: Client subscribed", "participant_id", participantID)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
