package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formbot"
	httpadapter "github.com/aretw0/formbot/pkg/adapters/http"
	"github.com/aretw0/formbot/pkg/adapters/file"
	"github.com/aretw0/formbot/pkg/adapters/memory"
	"github.com/aretw0/formbot/pkg/domain"
	"github.com/aretw0/formbot/pkg/observability"
	"github.com/aretw0/formbot/pkg/ports"
	"github.com/aretw0/formbot/pkg/runner"
)

type fixture struct {
	handler http.Handler
	engine  *formbot.Engine
}

func newFixture(t *testing.T, sessions ports.SessionStore) fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	streams := httpadapter.NewStreamManager(nil)

	eng, err := formbot.New(sessions, memory.NewProfiles(),
		formbot.WithLifecycleHooks(observability.ComposeHooks(metrics.Hooks(), streams.Hooks())))
	require.NoError(t, err)
	r := runner.New(eng, runner.WithObserver(metrics.ObserveEvent))
	t.Cleanup(func() { _ = r.Close(context.Background()) })

	return fixture{
		handler: httpadapter.NewHandler(r, eng,
			httpadapter.WithStreams(streams),
			httpadapter.WithGatherer(reg),
			httpadapter.WithVersion("1.2.3"),
		),
		engine: eng,
	}
}

func (f fixture) post(t *testing.T, id string, ev domain.Event) (int, domain.Reply) {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/participants/"+id+"/events", bytes.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	var reply domain.Reply
	_ = json.Unmarshal(w.Body.Bytes(), &reply)
	return w.Code, reply
}

func (f fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestServer_Dialogue(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	code, reply := f.post(t, "u1", domain.TextEvent("/fillform"))
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, reply.Text)

	code, reply = f.post(t, "u1", domain.TextEvent("Alice"))
	require.Equal(t, http.StatusOK, code)

	w := f.get("/participants/u1/session")
	require.Equal(t, http.StatusOK, w.Code)
	var sess domain.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, domain.StateAwaitAge, sess.State)
	assert.Equal(t, "Alice", sess.Fields[domain.FieldName])

	assert.Equal(t, http.StatusNotFound, f.get("/participants/u1/profile").Code)

	for _, ev := range []domain.Event{
		domain.TextEvent("30"),
		domain.ButtonEvent("female"),
		domain.ImageEvent(domain.ImageVariant{FileID: "f", UniqueID: "u", Width: 5, Height: 5}),
		domain.ButtonEvent("high_education"),
	} {
		code, _ := f.post(t, "u1", ev)
		require.Equal(t, http.StatusOK, code)
	}
	code, reply = f.post(t, "u1", domain.ButtonEvent("agreed"))
	require.Equal(t, http.StatusOK, code)
	assert.True(t, reply.EditPrevious)

	w = f.get("/participants/u1/profile")
	require.Equal(t, http.StatusOK, w.Code)
	var profile domain.Profile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "Alice", profile.Name)
	assert.Equal(t, 30, profile.Age)
}

func TestServer_DeleteSession(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	f.post(t, "u2", domain.TextEvent("/fillform"))

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/participants/u2/session", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	sess, err := f.engine.Session(context.Background(), "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.StateNone, sess.State)
}

func TestServer_BadRequests(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"kind":`},
		{"unknown kind", `{"kind":"voice"}`},
		{"unknown field", `{"kind":"text","text":"hi","extra":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/participants/u3/events", strings.NewReader(tt.body))
			f.handler.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestServer_HealthInfoMetrics(t *testing.T) {
	f := newFixture(t, memory.NewStore())

	assert.Equal(t, http.StatusOK, f.get("/healthz").Code)
	assert.Contains(t, f.get("/info").Body.String(), "1.2.3")

	f.post(t, "u4", domain.TextEvent("/start"))
	metrics := f.get("/metrics")
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `formbot_events_total{kind="text",outcome="ok"} 1`)
}

func TestServer_Stream(t *testing.T) {
	f := newFixture(t, memory.NewStore())
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/participants/u5/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "data: ") {
				return strings.TrimPrefix(line, "data: ")
			}
		}
		return ""
	}
	require.Equal(t, "connected", next())

	f.post(t, "u5", domain.TextEvent("/fillform"))
	f.post(t, "u5", domain.TextEvent("123"))

	var ev httpadapter.StreamEvent
	require.NoError(t, json.Unmarshal([]byte(next()), &ev))
	assert.Equal(t, "transition", ev.Type)
	assert.Equal(t, domain.StateAwaitName, ev.To)

	require.NoError(t, json.Unmarshal([]byte(next()), &ev))
	assert.Equal(t, "reject", ev.Type)
	assert.Equal(t, domain.StateAwaitName, ev.From)
}

func TestServer_InvalidParticipantIsBadRequest(t *testing.T) {
	f := newFixture(t, file.New(t.TempDir()))

	code, _ := f.post(t, ".hidden", domain.TextEvent("/fillform"))
	assert.Equal(t, http.StatusBadRequest, code)

	w := f.get("/participants/.hidden/session")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), domain.ErrInvalidParticipant.Error())
}
