package ports

import (
	"context"

	"github.com/aretw0/formbot/pkg/domain"
)

// ProfileRepository stores completed profiles.
type ProfileRepository interface {
	// Put overwrites the profile of a participant.
	Put(ctx context.Context, participantID string, profile domain.Profile) error

	// Get returns domain.ErrProfileNotFound if the participant never completed the dialogue.
	Get(ctx context.Context, participantID string) (*domain.Profile, error)
}
