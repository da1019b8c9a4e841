package telegram_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formbot"
	"github.com/aretw0/formbot/pkg/adapters/memory"
	"github.com/aretw0/formbot/pkg/adapters/telegram"
	"github.com/aretw0/formbot/pkg/observability"
	"github.com/aretw0/formbot/pkg/runner"
)

type fakeAPI struct {
	mu        sync.Mutex
	sent      []tgbotapi.Chattable
	requests  []tgbotapi.Chattable
	updates   chan tgbotapi.Update
	failEdits bool
	stopped   bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 16)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := c.(tgbotapi.EditMessageTextConfig); ok && f.failEdits {
		return tgbotapi.Message{}, errors.New("Bad Request: message can't be edited")
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
}

func message(text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 70}, Text: text,
	}}
}

func press(id, data string, messageID int) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID: id, From: &tgbotapi.User{ID: 7}, Data: data,
		Message: &tgbotapi.Message{MessageID: messageID, Chat: &tgbotapi.Chat{ID: 70}},
	}}
}

func runBot(t *testing.T, api *fakeAPI, updates ...tgbotapi.Update) (*formbot.Engine, *observability.Metrics) {
	t.Helper()
	eng, err := formbot.New(memory.NewStore(), memory.NewProfiles())
	require.NoError(t, err)
	r := runner.New(eng, runner.WithCatalog(eng.Catalog()))
	metrics := observability.NewMetrics(nil)
	bot := telegram.NewWithAPI(api, r, telegram.WithMetrics(metrics))

	for _, u := range updates {
		api.updates <- u
	}
	close(api.updates)

	require.NoError(t, bot.Run(context.Background()))
	require.NoError(t, r.Close(context.Background()))
	return eng, metrics
}

func TestBot_Dialogue(t *testing.T) {
	api := newFakeAPI()
	eng, metrics := runBot(t, api,
		message("/fillform"),
		message("Alice"),
		message("30"),
		press("cb1", "female", 3),
		tgbotapi.Update{Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 70},
			Photo: []tgbotapi.PhotoSize{{FileID: "ph", FileUniqueID: "uph", Width: 10, Height: 10}},
		}},
		press("cb2", "high_education", 5),
		press("cb3", "agreed", 5),
		message("/showdata"),
	)

	profile, err := eng.Profile(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, "ph", profile.Photo.FileID)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.True(t, api.stopped)

	// Three callbacks answered plus one delete of the gender keyboard.
	var answered, deleted int
	for _, c := range api.requests {
		switch c.(type) {
		case tgbotapi.CallbackConfig:
			answered++
		case tgbotapi.DeleteMessageConfig:
			deleted++
		}
	}
	assert.Equal(t, 3, answered)
	assert.Equal(t, 1, deleted)

	var edits int
	for _, c := range api.sent {
		if _, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edits++
		}
	}
	assert.Equal(t, 2, edits, "education and news answers edit in place")

	last := api.sent[len(api.sent)-1]
	photo, ok := last.(tgbotapi.PhotoConfig)
	require.True(t, ok, "showdata sends the stored photo")
	assert.Equal(t, tgbotapi.FileID("ph"), photo.File)
	assert.Contains(t, photo.Caption, "Alice")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MessagesSent.WithLabelValues("photo")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.MessagesSent.WithLabelValues("delete")))
}

func TestBot_EditFailureFallsBack(t *testing.T) {
	api := newFakeAPI()
	api.failEdits = true
	_, metrics := runBot(t, api,
		message("/fillform"),
		message("Alice"),
		message("30"),
		press("cb1", "male", 3),
		tgbotapi.Update{Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: 7}, Chat: &tgbotapi.Chat{ID: 70},
			Photo: []tgbotapi.PhotoSize{{FileID: "ph", Width: 10, Height: 10}},
		}},
		press("cb2", "no_education", 5),
	)

	api.mu.Lock()
	defer api.mu.Unlock()
	last, ok := api.sent[len(api.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.NotEmpty(t, last.Text)
	assert.NotNil(t, last.ReplyMarkup, "news keyboard survives the fallback")
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.APIFailures.WithLabelValues("editMessageText")))
}

func TestBot_StopsOnContext(t *testing.T) {
	api := newFakeAPI()
	bot := telegram.NewWithAPI(api, runner.New(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, bot.Run(ctx))
}
