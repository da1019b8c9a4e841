package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/formbot/pkg/domain"
)

// Store implements ports.SessionStore on the local filesystem,
// one JSON file per participant.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath.
// If basePath is empty, it defaults to ".formbot/sessions".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".formbot", "sessions")
	}
	return &Store{BasePath: basePath}
}

// Save writes the session atomically. Idle sessions delete the file instead.
func (s *Store) Save(ctx context.Context, participantID string, session *domain.Session) error {
	if err := checkID(participantID); err != nil {
		return err
	}
	if !session.State.Active() {
		return s.Clear(ctx, participantID)
	}

	copied := session.Clone()
	copied.ParticipantID = participantID
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = time.Now()
	}
	if err := writeJSON(s.BasePath, participantID, copied); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Load reads the session file, returning an idle session when there is none.
func (s *Store) Load(ctx context.Context, participantID string) (*domain.Session, error) {
	if err := checkID(participantID); err != nil {
		return nil, err
	}

	var session domain.Session
	found, err := readJSON(s.BasePath, participantID, &session)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if !found {
		return domain.NewSession(participantID), nil
	}
	return session.Normalize(), nil
}

// Clear removes the session file.
func (s *Store) Clear(ctx context.Context, participantID string) error {
	if err := checkID(participantID); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.BasePath, participantID+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: failed to delete session file: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// List returns every participant with a session file.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
