package formbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/formbot/internal/catalog"
	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/internal/runtime"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/ports"
	"github.com/aretw0/formbot/pkg/session"
)

// Engine is the high-level entry point of the library.
// It wraps the dialogue runtime with per-participant locking, so Handle is
// safe to call from any number of goroutines.
type Engine struct {
	runtime  *runtime.Engine
	sessions *session.Manager
	profiles ports.ProfileRepository

	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	catalog *catalog.Catalog
	locker  ports.DistributedLocker
	lockTTL time.Duration
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithCatalog replaces the built-in prompts.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(e *Engine) {
		e.catalog = cat
	}
}

// WithLocker serializes each participant across replicas, not just goroutines.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock outlives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// New builds an Engine over the given stores.
// It fails if the transition table and the catalog do not agree.
func New(sessions ports.SessionStore, profiles ports.ProfileRepository, opts ...Option) (*Engine, error) {
	eng := &Engine{profiles: profiles}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	rt, err := runtime.NewEngine(sessions, profiles,
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithCatalog(eng.catalog),
	)
	if err != nil {
		return nil, err
	}
	eng.runtime = rt
	eng.catalog = rt.Catalog()

	managerOpts := []session.Option{
		session.WithLogger(eng.logger),
		session.WithLockTTL(eng.lockTTL),
	}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(sessions, managerOpts...)
	return eng, nil
}

// Handle applies one inbound event for one participant and returns the reply.
// Events for the same participant are applied one at a time.
func (e *Engine) Handle(ctx context.Context, participantID string, ev domain.Event) (domain.Reply, error) {
	if participantID == "" {
		return domain.Reply{}, errors.New("participant id is required")
	}
	var reply domain.Reply
	err := e.sessions.WithLock(ctx, participantID, func(ctx context.Context) error {
		var err error
		reply, err = e.runtime.Handle(ctx, participantID, ev)
		return err
	})
	return reply, err
}

// Session returns the in-progress session of a participant.
func (e *Engine) Session(ctx context.Context, participantID string) (*domain.Session, error) {
	return e.sessions.Load(ctx, participantID)
}

// Reset discards the in-progress session of a participant.
func (e *Engine) Reset(ctx context.Context, participantID string) error {
	return e.sessions.Clear(ctx, participantID)
}

// Profile returns the completed profile of a participant.
func (e *Engine) Profile(ctx context.Context, participantID string) (*domain.Profile, error) {
	p, err := e.profiles.Get(ctx, participantID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, err
}

// Sessions exposes the session manager (listing, locking).
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Catalog returns the prompts in use.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}
