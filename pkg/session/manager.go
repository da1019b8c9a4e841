package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a participant.
const DefaultLockTTL = 30 * time.Second

// ErrListUnsupported is returned by List when the store cannot enumerate sessions.
var ErrListUnsupported = errors.New("session store does not support listing")

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to each participant's session.
// Locks are reference counted so idle participants cost nothing.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Guards locks
	locks map[string]*lockEntry // Active participants

	locker  ports.DistributedLocker // Optional cross-replica lock
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Session Manager over store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(participantID) after unlocking.
func (m *Manager) acquire(participantID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[participantID]
	if !exists {
		entry = &lockEntry{}
		m.locks[participantID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(participantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[participantID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, participantID)
	}
}

// WithLock runs fn while holding the participant's lock.
// Different participants never wait on each other.
func (m *Manager) WithLock(ctx context.Context, participantID string, fn func(context.Context) error) error {
	entry := m.acquire(participantID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(participantID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, participantID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("%w: failed to acquire distributed lock: %w", domain.ErrStoreUnavailable, err)
		}
		defer func() {
			// The caller's ctx may already be done; the lock must still be released.
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"participant_id", participantID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load reads a session under the participant lock.
func (m *Manager) Load(ctx context.Context, participantID string) (*domain.Session, error) {
	var sess *domain.Session
	err := m.WithLock(ctx, participantID, func(ctx context.Context) error {
		var err error
		sess, err = m.store.Load(ctx, participantID)
		return err
	})
	return sess, err
}

// Clear resets a participant under the lock.
func (m *Manager) Clear(ctx context.Context, participantID string) error {
	return m.WithLock(ctx, participantID, func(ctx context.Context) error {
		return m.store.Clear(ctx, participantID)
	})
}

// List delegates to the store when it supports listing.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	lister, ok := m.store.(ports.SessionLister)
	if !ok {
		return nil, ErrListUnsupported
	}
	return lister.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}
