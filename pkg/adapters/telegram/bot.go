package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/observability"
	"github.com/aretw0/formbot/pkg/runner"
)

// DefaultPollTimeout is the long-poll timeout in seconds.
const DefaultPollTimeout = 60

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Submitter queues events per participant. *runner.Runner implements it.
type Submitter interface {
	Submit(ctx context.Context, participantID string, ev domain.Event, cb runner.Callback) error
}

// Bot feeds Telegram updates to a Submitter and delivers the replies.
type Bot struct {
	api       API
	submitter Submitter
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Option configures a Bot.
type Option func(*Bot)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithMetrics counts sent messages and API failures.
func WithMetrics(m *observability.Metrics) Option {
	return func(b *Bot) {
		b.metrics = m
	}
}

// New connects to the Bot API with the given token.
func New(token string, submitter Submitter, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	// Long polling holds the request open for DefaultPollTimeout seconds.
	api.Client = &http.Client{Timeout: (DefaultPollTimeout + 10) * time.Second}
	return NewWithAPI(api, submitter, opts...), nil
}

// NewWithAPI builds a Bot over an existing API client.
func NewWithAPI(api API, submitter Submitter, opts ...Option) *Bot {
	b := &Bot{api: api, submitter: submitter}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	return b
}

// Run long-polls updates until ctx is done or the update channel closes.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = DefaultPollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("Telegram bot polling")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	in, ok := EventFromUpdate(update)

	// Pressed buttons spin until answered, even when the press is ignored.
	if in.CallbackID != "" {
		b.request(ctx, "answerCallbackQuery", tgbotapi.NewCallback(in.CallbackID, ""))
	}
	if !ok {
		return
	}

	err := b.submitter.Submit(ctx, in.ParticipantID, in.Event, func(reply domain.Reply, err error) {
		b.deliver(ctx, in, reply)
	})
	if err != nil {
		b.logger.WarnContext(ctx, "Update dropped", "participant_id", in.ParticipantID, "error", err)
	}
}

// deliver runs on the participant's mailbox, so replies leave in order.
func (b *Bot) deliver(ctx context.Context, in Inbound, reply domain.Reply) {
	for _, c := range Render(in.ChatID, in.MessageID, reply) {
		switch c := c.(type) {
		case tgbotapi.DeleteMessageConfig:
			// A failed delete only leaves a stale keyboard behind.
			b.request(ctx, "deleteMessage", c)
		case tgbotapi.EditMessageTextConfig:
			if b.send(ctx, "editMessageText", "edit", c) != nil {
				// Too old or already edited: say it in a fresh message instead.
				_ = b.send(ctx, "sendMessage", "message", newMessage(in.ChatID, c.Text, reply.Buttons))
			}
		case tgbotapi.PhotoConfig:
			_ = b.send(ctx, "sendPhoto", "photo", c)
		default:
			_ = b.send(ctx, "sendMessage", "message", c)
		}
	}
}

func (b *Bot) send(ctx context.Context, method, kind string, c tgbotapi.Chattable) error {
	if _, err := b.api.Send(c); err != nil {
		b.failed(ctx, method, err)
		return err
	}
	if b.metrics != nil {
		b.metrics.MessagesSent.WithLabelValues(kind).Inc()
	}
	return nil
}

func (b *Bot) request(ctx context.Context, method string, c tgbotapi.Chattable) {
	if _, err := b.api.Request(c); err != nil {
		b.failed(ctx, method, err)
		return
	}
	if method == "deleteMessage" && b.metrics != nil {
		b.metrics.MessagesSent.WithLabelValues("delete").Inc()
	}
}

func (b *Bot) failed(ctx context.Context, method string, err error) {
	b.logger.WarnContext(ctx, "Telegram API call failed", "method", method, "error", err)
	if b.metrics != nil {
		b.metrics.APIFailures.WithLabelValues(method).Inc()
	}
}
