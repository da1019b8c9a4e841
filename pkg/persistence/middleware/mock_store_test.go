package middleware_test

import (
	"context"

	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.Session
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Session),
	}
}

func (s *MockStore) Save(ctx context.Context, participantID string, sess *domain.Session) error {
	if sess == nil || !sess.State.Active() {
		delete(s.data, participantID)
		return nil
	}
	s.data[participantID] = sess.Clone()
	return nil
}

func (s *MockStore) Load(ctx context.Context, participantID string) (*domain.Session, error) {
	sess, ok := s.data[participantID]
	if !ok {
		return domain.NewSession(participantID), nil
	}
	return sess.Clone(), nil
}

func (s *MockStore) Clear(ctx context.Context, participantID string) error {
	delete(s.data, participantID)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var (
	_ ports.SessionStore  = (*MockStore)(nil)
	_ ports.SessionLister = (*MockStore)(nil)
)
