package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/formbot/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use. Nothing survives a restart.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
	ttl  time.Duration
	now  func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTTL expires sessions that have not been saved for longer than ttl.
// Expired sessions load as idle. Zero disables expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new in-memory session store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		data: make(map[string]*domain.Session),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save persists a copy of the session. Idle sessions are removed.
func (s *Store) Save(ctx context.Context, participantID string, session *domain.Session) error {
	if !session.State.Active() {
		return s.Clear(ctx, participantID)
	}

	copied := session.Clone()
	copied.ParticipantID = participantID
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[participantID] = copied
	return nil
}

// Load returns a copy so callers cannot mutate stored state through the pointer.
func (s *Store) Load(ctx context.Context, participantID string) (*domain.Session, error) {
	s.mu.RLock()
	session, ok := s.data[participantID]
	s.mu.RUnlock()

	if !ok || s.expired(session) {
		return domain.NewSession(participantID), nil
	}
	return session.Clone(), nil
}

// Clear removes the session.
func (s *Store) Clear(ctx context.Context, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, participantID)
	return nil
}

// List returns participants with an unexpired active session.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.data))
	for id, session := range s.data {
		if s.expired(session) {
			delete(s.data, id)
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) expired(session *domain.Session) bool {
	return s.ttl > 0 && s.now().Sub(session.UpdatedAt) > s.ttl
}
