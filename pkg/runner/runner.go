package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/formbot/internal/catalog"
	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/ports"
	"github.com/google/uuid"
)

// Event outcomes reported to the Observer.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid_input"
	OutcomeError   = "error"
	OutcomePanic   = "panic"
)

// ErrPanic is reported to the callback when the dialogue panicked.
var ErrPanic = errors.New("dialogue panicked")

// Callback receives the outcome of one event.
// The reply is always safe to show the participant, even when err is non-nil.
type Callback func(reply domain.Reply, err error)

type job struct {
	ctx context.Context
	ev  domain.Event
	cb  Callback
}

type mailbox struct {
	queue []job
}

// Runner serializes events per participant on top of a Dialogue.
type Runner struct {
	dialogue ports.Dialogue
	logger   *slog.Logger
	catalog  *catalog.Catalog
	observer Observer
	maxInput int

	mu     sync.Mutex
	boxes  map[string]*mailbox
	closed bool
	wg     sync.WaitGroup
}

// New creates a Runner. The maximum input size defaults to DefaultMaxInputSize.
func New(dialogue ports.Dialogue, opts ...Option) *Runner {
	r := &Runner{
		dialogue: dialogue,
		maxInput: DefaultMaxInputSize,
		boxes:    make(map[string]*mailbox),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	if r.catalog == nil {
		r.catalog = catalog.Default()
	}
	return r
}

// Submit enqueues an event and returns immediately.
// Callbacks for the same participant run in submission order; cb may be nil.
func (r *Runner) Submit(ctx context.Context, participantID string, ev domain.Event, cb Callback) error {
	if participantID == "" {
		return errors.New("participant id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return domain.ErrClosed
	}

	j := job{ctx: ctx, ev: ev, cb: cb}
	if box, ok := r.boxes[participantID]; ok {
		box.queue = append(box.queue, j)
		return nil
	}
	box := &mailbox{queue: []job{j}}
	r.boxes[participantID] = box
	r.wg.Add(1)
	go r.drain(participantID, box)
	return nil
}

// Dispatch enqueues an event and waits for its reply.
func (r *Runner) Dispatch(ctx context.Context, participantID string, ev domain.Event) (domain.Reply, error) {
	type result struct {
		reply domain.Reply
		err   error
	}
	done := make(chan result, 1)
	err := r.Submit(ctx, participantID, ev, func(reply domain.Reply, err error) {
		done <- result{reply, err}
	})
	if err != nil {
		return domain.Reply{}, err
	}
	select {
	case res := <-done:
		return res.reply, res.err
	case <-ctx.Done():
		return domain.Reply{}, ctx.Err()
	}
}

// Close stops accepting events and waits for queued ones to finish.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("close runner: %w", ctx.Err())
	}
}

func (r *Runner) drain(participantID string, box *mailbox) {
	defer r.wg.Done()
	for {
		r.mu.Lock()
		if len(box.queue) == 0 {
			delete(r.boxes, participantID)
			r.mu.Unlock()
			return
		}
		j := box.queue[0]
		box.queue[0] = job{}
		box.queue = box.queue[1:]
		r.mu.Unlock()

		reply, err := r.process(j.ctx, participantID, j.ev)
		if j.cb != nil {
			j.cb(reply, err)
		}
	}
}

func (r *Runner) process(ctx context.Context, participantID string, ev domain.Event) (reply domain.Reply, err error) {
	start := time.Now()
	outcome := OutcomeOK
	logger := r.logger.With(
		"participant_id", participantID,
		"correlation_id", uuid.NewString(),
	)
	ctx = logging.WithContext(ctx, logger)

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Dialogue panicked", "panic", p)
			outcome = OutcomePanic
			reply = domain.Reply{Text: r.catalog.Text(catalog.MsgTryAgain)}
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
		if r.observer != nil {
			r.observer(ev.Kind, outcome, time.Since(start))
		}
	}()

	if err := ctx.Err(); err != nil {
		outcome = OutcomeError
		return domain.Reply{Text: r.catalog.Text(catalog.MsgTryAgain)}, err
	}

	clean, err := SanitizeEvent(ev, r.maxInput)
	if err != nil {
		logger.DebugContext(ctx, "Input rejected", "error", err)
		outcome = OutcomeInvalid
		return domain.Reply{Text: r.catalog.Text(catalog.MsgInvalidInput)}, nil
	}

	reply, err = r.dialogue.Handle(ctx, participantID, clean)
	if errors.Is(err, domain.ErrInvalidParticipant) {
		logger.WarnContext(ctx, "Participant id refused by the store", "error", err)
		outcome = OutcomeInvalid
		return domain.Reply{Text: r.catalog.Text(catalog.MsgInvalidInput)}, err
	}
	if err != nil {
		logger.ErrorContext(ctx, "Event failed", "error", err)
		outcome = OutcomeError
		return domain.Reply{Text: r.catalog.Text(catalog.MsgTryAgain)}, err
	}
	return reply, nil
}
