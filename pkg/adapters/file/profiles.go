package file

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aretw0/formbot/pkg/domain"
)

// Profiles implements ports.ProfileRepository as JSON files.
type Profiles struct {
	BasePath string
}

// NewProfiles creates a repository rooted at basePath (default ".formbot/profiles").
func NewProfiles(basePath string) *Profiles {
	if basePath == "" {
		basePath = filepath.Join(".formbot", "profiles")
	}
	return &Profiles{BasePath: basePath}
}

func (p *Profiles) Put(ctx context.Context, participantID string, profile domain.Profile) error {
	if err := checkID(participantID); err != nil {
		return err
	}
	if err := writeJSON(p.BasePath, participantID, profile); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *Profiles) Get(ctx context.Context, participantID string) (*domain.Profile, error) {
	if err := checkID(participantID); err != nil {
		return nil, err
	}
	var profile domain.Profile
	found, err := readJSON(p.BasePath, participantID, &profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if !found {
		return nil, domain.ErrProfileNotFound
	}
	return &profile, nil
}
