package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/formbot"
	"github.com/aretw0/formbot/internal/catalog"
	"github.com/aretw0/formbot/internal/config"
	"github.com/aretw0/formbot/pkg/adapters/file"
	"github.com/aretw0/formbot/pkg/adapters/memory"
	"github.com/aretw0/formbot/pkg/adapters/redis"
	"github.com/aretw0/formbot/pkg/adapters/sqlite"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/observability"
	"github.com/aretw0/formbot/pkg/persistence/middleware"
	"github.com/aretw0/formbot/pkg/ports"
	"github.com/aretw0/formbot/pkg/runner"
	"github.com/aretw0/formbot/pkg/session"
)

// DefaultFileRoot holds sessions/ and profiles/ for file:// URLs without a path.
const DefaultFileRoot = ".formbot"

// Stack is the persistence wired from configuration.
type Stack struct {
	Sessions ports.SessionStore
	Profiles ports.ProfileRepository
	// Locker is set when DISTRIBUTED_LOCK is on.
	Locker ports.DistributedLocker

	// Raw is the session store before middleware, for operator tooling.
	Raw ports.SessionStore

	clients map[string]*backend.Client
	closers []io.Closer
}

// Close releases connections and database handles.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// Manager wraps the session store with per-participant locking, using the
// distributed locker when one is configured.
func (s *Stack) Manager() *session.Manager {
	return session.NewManager(s.Sessions, s.managerOptions()...)
}

func (s *Stack) managerOptions() []session.Option {
	if s.Locker == nil {
		return nil
	}
	return []session.Option{session.WithLocker(s.Locker)}
}

// OpenStack builds the session store, profile repository and locker named by cfg.
func OpenStack(cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	stack := &Stack{clients: map[string]*backend.Client{}}

	sessions, err := stack.openSessions(cfg, logger)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}
	stack.Raw = sessions

	active, fallback, err := cfg.EncryptionKeys()
	if err != nil {
		_ = stack.Close()
		return nil, err
	}
	if active != nil {
		sessions = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})(sessions)
	}
	stack.Sessions = sessions

	if stack.Profiles, err = stack.openProfiles(cfg); err != nil {
		_ = stack.Close()
		return nil, err
	}

	if cfg.DistributedLock {
		client, ok := stack.clients[cfg.StoreURL]
		if !ok {
			_ = stack.Close()
			return nil, fmt.Errorf("%s requires a redis:// %s", config.KeyDistributedLock, config.KeyStoreURL)
		}
		stack.Locker = redis.NewLocker(client, prefix(cfg))
	}
	return stack, nil
}

func (s *Stack) openSessions(cfg *config.Config, logger *slog.Logger) (ports.SessionStore, error) {
	raw := cfg.StoreURL
	switch scheme(raw) {
	case "memory":
		return memory.NewStore(memory.WithTTL(cfg.SessionTTL)), nil
	case "file":
		if cfg.SessionTTL > 0 {
			logger.Warn("SESSION_TTL is not enforced by the file store", "store_url", raw)
		}
		return file.New(filepath.Join(fileRoot(raw), "sessions")), nil
	case "redis", "rediss":
		client, err := s.redisClient(raw)
		if err != nil {
			return nil, err
		}
		return redis.NewFromClient(client, redis.WithTTL(cfg.SessionTTL), redis.WithPrefix(prefix(cfg))), nil
	}
	return nil, fmt.Errorf("%s: unsupported scheme in %q", config.KeyStoreURL, raw)
}

func (s *Stack) openProfiles(cfg *config.Config) (ports.ProfileRepository, error) {
	raw := cfg.ProfileURL()
	switch scheme(raw) {
	case "memory":
		return memory.NewProfiles(), nil
	case "file":
		return file.NewProfiles(filepath.Join(fileRoot(raw), "profiles")), nil
	case "redis", "rediss":
		client, err := s.redisClient(raw)
		if err != nil {
			return nil, err
		}
		return redis.NewProfiles(client, prefix(cfg)), nil
	case "sqlite":
		profiles, err := sqlite.Open(strings.TrimPrefix(raw, "sqlite://"))
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, profiles)
		return profiles, nil
	}
	return nil, fmt.Errorf("%s: unsupported scheme in %q", config.KeyProfileStoreURL, raw)
}

// redisClient shares one client per URL between sessions, profiles and the locker.
func (s *Stack) redisClient(raw string) (*backend.Client, error) {
	if c, ok := s.clients[raw]; ok {
		return c, nil
	}
	opts, err := backend.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := backend.NewClient(opts)
	s.clients[raw] = c
	s.closers = append(s.closers, c)
	return c, nil
}

func scheme(raw string) string {
	name, _, _ := strings.Cut(raw, "://")
	return strings.ToLower(name)
}

func fileRoot(raw string) string {
	if root := strings.TrimPrefix(raw, "file://"); root != "" {
		return root
	}
	return DefaultFileRoot
}

func prefix(cfg *config.Config) string {
	if cfg.KeyPrefix != "" {
		return cfg.KeyPrefix
	}
	return redis.DefaultPrefix
}

// NewMetrics registers the formbot collectors plus Go and process metrics on a fresh registry.
func NewMetrics() (*prometheus.Registry, *observability.Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, observability.NewMetrics(reg)
}

// NewEngine initializes the dialogue engine with standard CLI conventions:
// audit logging is always on and extra hooks run after it.
func NewEngine(cfg *config.Config, stack *Stack, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*formbot.Engine, error) {
	all := append([]domain.LifecycleHooks{observability.AuditHooks(logger)}, hooks...)
	opts := []formbot.Option{
		formbot.WithLogger(logger),
		formbot.WithLifecycleHooks(observability.ComposeHooks(all...)),
		formbot.WithLockTTL(cfg.LockTTL),
	}
	if stack.Locker != nil {
		opts = append(opts, formbot.WithLocker(stack.Locker))
	}
	if cfg.PromptsFile != "" {
		cat, err := catalog.Load(cfg.PromptsFile)
		if err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
		opts = append(opts, formbot.WithCatalog(cat))
	}

	engine, err := formbot.New(stack.Sessions, stack.Profiles, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// NewRunner puts the engine behind per-participant mailboxes.
func NewRunner(cfg *config.Config, engine *formbot.Engine, logger *slog.Logger, metrics *observability.Metrics) *runner.Runner {
	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithCatalog(engine.Catalog()),
		runner.WithMaxInputSize(cfg.MaxInputSize),
	}
	if metrics != nil {
		opts = append(opts, runner.WithObserver(metrics.ObserveEvent))
	}
	return runner.New(engine, opts...)
}
