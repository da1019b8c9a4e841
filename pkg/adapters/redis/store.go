package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/formbot/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by this package.
const DefaultPrefix = "formbot:"

// noExpiryScore is the index score of sessions saved without a TTL (2100-01-01).
const noExpiryScore = 4102444800

// Store implements ports.SessionStore using Redis.
// Sessions live at <prefix>session:<id>; a sorted set at <prefix>session:index
// scored by expiry time backs List.
type Store struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Store)

// WithTTL expires idle sessions. Every save refreshes the expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock overrides the clock used for index scores.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New connects to the Redis server at address.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(participantID string) string {
	return s.prefix + "session:" + participantID
}

func (s *Store) indexKey() string {
	return s.prefix + "session:index"
}

// Save writes the session and its index entry in one MULTI/EXEC.
func (s *Store) Save(ctx context.Context, participantID string, session *domain.Session) error {
	if !session.State.Active() {
		return s.Clear(ctx, participantID)
	}

	copied := session.Clone()
	copied.ParticipantID = participantID
	if copied.UpdatedAt.IsZero() {
		copied.UpdatedAt = s.now()
	}
	data, err := json.Marshal(copied)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	score := float64(noExpiryScore)
	if s.ttl > 0 {
		score = float64(s.now().Add(s.ttl).Unix())
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Set(ctx, s.key(participantID), data, s.ttl)
		pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: participantID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: save session: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Load returns the stored session, or an idle one if the key is absent or expired.
func (s *Store) Load(ctx context.Context, participantID string) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(participantID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.NewSession(participantID), nil
		}
		return nil, fmt.Errorf("%w: load session: %w", domain.ErrStoreUnavailable, err)
	}

	var session domain.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, fmt.Errorf("%w: corrupt session %s: %w", domain.ErrStoreUnavailable, participantID, err)
	}
	return session.Normalize(), nil
}

// Clear removes the session and its index entry.
func (s *Store) Clear(ctx context.Context, participantID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(participantID))
		pipe.ZRem(ctx, s.indexKey(), participantID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: clear session: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// List returns participants with a live session.
// Expired entries are pruned from the index first.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired sessions: %w", err)
	}

	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
