package ports

import (
	"context"

	"github.com/aretw0/formbot/pkg/domain"
)

// SessionStore persists in-progress dialogues.
// This is what makes a dialogue resumable across restarts and replicas.
type SessionStore interface {
	// Load retrieves the session for a participant.
	// A missing key is not an error: it returns a fresh domain.StateNone session.
	Load(ctx context.Context, participantID string) (*domain.Session, error)

	// Save overwrites the session for a participant.
	// Saving a session in domain.StateNone is equivalent to Clear.
	Save(ctx context.Context, participantID string, session *domain.Session) error

	// Clear resets the participant to domain.StateNone with no fields.
	Clear(ctx context.Context, participantID string) error
}

// SessionLister is implemented by stores that can enumerate active sessions.
type SessionLister interface {
	List(ctx context.Context) ([]string, error)
}
