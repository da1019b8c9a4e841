package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/formbot/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Profiles implements ports.ProfileRepository using Redis.
// Profiles are stored without expiry at <prefix>profile:<id>.
type Profiles struct {
	client backend.UniversalClient
	prefix string
}

// NewProfiles creates a repository sharing the client (and usually the prefix) of a Store.
func NewProfiles(client backend.UniversalClient, prefix string) *Profiles {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Profiles{client: client, prefix: prefix}
}

func (p *Profiles) key(participantID string) string {
	return p.prefix + "profile:" + participantID
}

func (p *Profiles) Put(ctx context.Context, participantID string, profile domain.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := p.client.Set(ctx, p.key(participantID), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: put profile: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (p *Profiles) Get(ctx context.Context, participantID string) (*domain.Profile, error) {
	val, err := p.client.Get(ctx, p.key(participantID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: get profile: %w", domain.ErrStoreUnavailable, err)
	}

	var profile domain.Profile
	if err := json.Unmarshal(val, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return &profile, nil
}
