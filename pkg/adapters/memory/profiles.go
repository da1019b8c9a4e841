package memory

import (
	"context"
	"sync"

	"github.com/aretw0/formbot/pkg/domain"
)

// Profiles implements ports.ProfileRepository in memory.
type Profiles struct {
	mu   sync.RWMutex
	data map[string]domain.Profile
}

// NewProfiles creates an empty repository.
func NewProfiles() *Profiles {
	return &Profiles{data: make(map[string]domain.Profile)}
}

func (p *Profiles) Put(ctx context.Context, participantID string, profile domain.Profile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[participantID] = profile
	return nil
}

func (p *Profiles) Get(ctx context.Context, participantID string) (*domain.Profile, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	profile, ok := p.data[participantID]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return &profile, nil
}
