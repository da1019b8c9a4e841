package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/aretw0/formbot/internal/catalog"
	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Engine consumes one event for one participant at a time.
// It does no locking of its own: callers must serialize events per participant.
type Engine struct {
	sessions ports.SessionStore
	profiles ports.ProfileRepository
	table    Table
	catalog  *catalog.Catalog
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the fallback logger. A logger attached to the context wins.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithCatalog replaces the embedded prompt catalog.
func WithCatalog(cat *catalog.Catalog) EngineOption {
	return func(e *Engine) {
		if cat != nil {
			e.catalog = cat
		}
	}
}

// WithTable replaces the default transition table.
func WithTable(table Table) EngineOption {
	return func(e *Engine) {
		e.table = table
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine builds an engine and validates its table against its catalog.
func NewEngine(sessions ports.SessionStore, profiles ports.ProfileRepository, opts ...EngineOption) (*Engine, error) {
	if sessions == nil || profiles == nil {
		return nil, errors.New("session store and profile repository are required")
	}
	e := &Engine{
		sessions: sessions,
		profiles: profiles,
		table:    DefaultTable(),
		catalog:  catalog.Default(),
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := ValidateTable(e.table, EntryState, e.catalog); err != nil {
		return nil, fmt.Errorf("invalid transition table: %w", err)
	}
	return e, nil
}

// Catalog returns the catalog used for replies.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Handle applies one event. Rejections come back as replies with a nil error.
// A non-nil error means nothing was changed. It wraps domain.ErrInvalidParticipant
// when the store refuses the id itself, and domain.ErrStoreUnavailable otherwise.
func (e *Engine) Handle(ctx context.Context, participantID string, ev domain.Event) (domain.Reply, error) {
	logger := logging.FromContext(ctx, e.logger).With("participant_id", participantID)

	sess, err := e.sessions.Load(ctx, participantID)
	if err != nil {
		return domain.Reply{}, unavailable("load session", err)
	}
	sess.Normalize()
	sess.ParticipantID = participantID

	logger.DebugContext(ctx, "Event received", "state", sess.State, "kind", ev.Kind)

	if ev.Command() == domain.CommandCancel {
		return e.cancel(ctx, logger, sess, ev)
	}
	if !sess.State.Active() {
		return e.idle(ctx, logger, sess, ev)
	}
	return e.answer(ctx, logger, sess, ev)
}

func (e *Engine) cancel(ctx context.Context, logger *slog.Logger, sess *domain.Session, ev domain.Event) (domain.Reply, error) {
	if !sess.State.Active() {
		return domain.Reply{Text: e.catalog.Text(catalog.MsgNothingToCancel)}, nil
	}
	if err := e.sessions.Clear(ctx, sess.ParticipantID); err != nil {
		return domain.Reply{}, unavailable("clear session", err)
	}
	logger.InfoContext(ctx, "Dialogue cancelled", "state", sess.State)
	e.fire(ctx, e.hooks.OnCancel, sess.ParticipantID, sess.State, domain.StateNone, ev.Kind)
	return domain.Reply{Text: e.catalog.Text(catalog.MsgCancelled)}, nil
}

func (e *Engine) idle(ctx context.Context, logger *slog.Logger, sess *domain.Session, ev domain.Event) (domain.Reply, error) {
	switch ev.Command() {
	case domain.CommandFillForm:
		next := domain.NewSession(sess.ParticipantID)
		next.State = EntryState
		next.UpdatedAt = e.now()
		if err := e.sessions.Save(ctx, sess.ParticipantID, next); err != nil {
			return domain.Reply{}, unavailable("save session", err)
		}
		logger.InfoContext(ctx, "Dialogue started")
		e.fire(ctx, e.hooks.OnTransition, sess.ParticipantID, domain.StateNone, EntryState, ev.Kind)
		return e.prompt(EntryState, PresentNew), nil
	case domain.CommandStart:
		return domain.Reply{Text: e.catalog.Text(catalog.MsgIntro)}, nil
	case domain.CommandHelp:
		return domain.Reply{Text: e.catalog.Text(catalog.MsgHelp)}, nil
	case domain.CommandShowData:
		return e.showData(ctx, sess.ParticipantID)
	}
	return domain.Reply{Text: e.catalog.Text(catalog.MsgNotUnderstood)}, nil
}

func (e *Engine) answer(ctx context.Context, logger *slog.Logger, sess *domain.Session, ev domain.Event) (domain.Reply, error) {
	state := sess.State
	step, ok := e.table[state]
	if !ok {
		// Written by an incompatible build. Start the participant over.
		logger.ErrorContext(ctx, "Session in unknown state, clearing", "state", state)
		if err := e.sessions.Clear(ctx, sess.ParticipantID); err != nil {
			return domain.Reply{}, unavailable("clear session", err)
		}
		return domain.Reply{Text: e.catalog.Text(catalog.MsgTryAgain)}, nil
	}

	if ev.Kind != step.Accepts {
		return e.reject(ctx, logger, sess, ev, fmt.Errorf("expected %s event, got %s", step.Accepts, ev.Kind)), nil
	}
	fields, err := step.Validate(ev)
	if err != nil {
		return e.reject(ctx, logger, sess, ev, err), nil
	}

	next := sess.Clone()
	maps.Copy(next.Fields, fields)

	if step.Next == domain.StateNone {
		return e.complete(ctx, logger, next, ev, step)
	}

	next.State = step.Next
	next.UpdatedAt = e.now()
	if err := e.sessions.Save(ctx, sess.ParticipantID, next); err != nil {
		return domain.Reply{}, unavailable("save session", err)
	}
	logger.DebugContext(ctx, "Answer accepted", "from", state, "to", next.State)
	e.fire(ctx, e.hooks.OnTransition, sess.ParticipantID, state, next.State, ev.Kind)
	return e.prompt(next.State, step.Present), nil
}

func (e *Engine) reject(ctx context.Context, logger *slog.Logger, sess *domain.Session, ev domain.Event, reason error) domain.Reply {
	logger.DebugContext(ctx, "Answer rejected", "state", sess.State, "reason", reason)
	e.fire(ctx, e.hooks.OnReject, sess.ParticipantID, sess.State, sess.State, ev.Kind)
	return domain.Reply{Text: e.catalog.Reject(sess.State)}
}

// complete writes the profile first and clears the session second, so a
// failure in between leaves the participant on the last question with the
// answer safely stored; a retry overwrites it.
func (e *Engine) complete(ctx context.Context, logger *slog.Logger, sess *domain.Session, ev domain.Event, step Step) (domain.Reply, error) {
	from := sess.State

	profile, err := DecodeProfile(sess.Fields)
	if err != nil {
		logger.ErrorContext(ctx, "Collected fields do not form a profile, clearing", "err", err)
		if err := e.sessions.Clear(ctx, sess.ParticipantID); err != nil {
			return domain.Reply{}, unavailable("clear session", err)
		}
		return domain.Reply{Text: e.catalog.Text(catalog.MsgTryAgain)}, nil
	}
	profile.Version = domain.SessionVersion
	profile.CompletedAt = e.now()

	if err := e.profiles.Put(ctx, sess.ParticipantID, profile); err != nil {
		return domain.Reply{}, unavailable("put profile", err)
	}
	if err := e.sessions.Clear(ctx, sess.ParticipantID); err != nil {
		return domain.Reply{}, unavailable("clear session", err)
	}

	logger.InfoContext(ctx, "Dialogue completed")
	e.fire(ctx, e.hooks.OnComplete, sess.ParticipantID, from, domain.StateNone, ev.Kind)

	reply := domain.Reply{
		Text: e.catalog.Text(catalog.MsgCompleted) + "\n\n" + e.catalog.Text(catalog.MsgShowDataHint),
	}
	present(&reply, step.Present)
	return reply, nil
}

func (e *Engine) showData(ctx context.Context, participantID string) (domain.Reply, error) {
	profile, err := e.profiles.Get(ctx, participantID)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.Reply{Text: e.catalog.Text(catalog.MsgNoProfile)}, nil
	}
	if err != nil {
		return domain.Reply{}, unavailable("get profile", err)
	}

	text, err := e.catalog.Render(*profile)
	if err != nil {
		return domain.Reply{}, err
	}
	return domain.Reply{Text: text, AttachPhoto: profile.Photo.FileID}, nil
}

// prompt builds the question for state, with its buttons.
func (e *Engine) prompt(state domain.State, how Presentation) domain.Reply {
	reply := domain.Reply{Text: e.catalog.Prompt(state)}
	for _, row := range e.table[state].Buttons {
		buttons := make([]domain.Button, 0, len(row))
		for _, token := range row {
			buttons = append(buttons, domain.Button{Label: e.catalog.Button(token), Token: token})
		}
		reply.Buttons = append(reply.Buttons, buttons)
	}
	present(&reply, how)
	return reply
}

func present(reply *domain.Reply, how Presentation) {
	switch how {
	case PresentEdit:
		reply.EditPrevious = true
	case PresentReplace:
		reply.DeletePrevious = true
	}
}

func (e *Engine) fire(ctx context.Context, hook func(context.Context, *domain.TransitionEvent), participantID string, from, to domain.State, kind domain.EventKind) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.TransitionEvent{
		Timestamp:     e.now(),
		ParticipantID: participantID,
		From:          from,
		To:            to,
		Kind:          kind,
	})
}

// DecodeProfile converts collected fields into a validated Profile.
// Weak typing absorbs JSON round trips (ages come back as float64).
func DecodeProfile(fields map[string]any) (domain.Profile, error) {
	var profile domain.Profile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &profile,
	})
	if err != nil {
		return profile, err
	}
	if err := decoder.Decode(fields); err != nil {
		return profile, fmt.Errorf("%w: %w", domain.ErrInvalidProfile, err)
	}
	if err := profile.Validate(); err != nil {
		return profile, err
	}
	return profile, nil
}

func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) || errors.Is(err, domain.ErrInvalidParticipant) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
