package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formbot/internal/config"
	"github.com/aretw0/formbot/pkg/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func seed(t *testing.T, stack *Stack, id string, state domain.State) {
	t.Helper()
	sess := domain.NewSession(id)
	sess.State = state
	sess.Fields[domain.FieldName] = "Alice"
	require.NoError(t, stack.Sessions.Save(context.Background(), id, sess))
}

func TestListSessions(t *testing.T) {
	stack := openStack(t, map[string]string{config.KeyStoreURL: "memory://"})
	var out bytes.Buffer

	require.NoError(t, ListSessions(context.Background(), stack, &out))
	assert.Contains(t, out.String(), "No active sessions")

	seed(t, stack, "zed", domain.StateAwaitAge)
	seed(t, stack, "amy", domain.StateAwaitGender)
	out.Reset()
	require.NoError(t, ListSessions(context.Background(), stack, &out))
	assert.Equal(t, "amy\nzed\n", out.String())
}

func TestInspectSession(t *testing.T) {
	stack := openStack(t, map[string]string{config.KeyStoreURL: "memory://"})
	seed(t, stack, "p1", domain.StateAwaitAge)
	ctx := context.Background()

	t.Run("plain", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, InspectSession(ctx, stack, "p1", InspectOptions{}, &out))

		var sess domain.Session
		require.NoError(t, json.Unmarshal(out.Bytes(), &sess))
		assert.Equal(t, domain.StateAwaitAge, sess.State)
		assert.Equal(t, "Alice", sess.Fields[domain.FieldName])
	})

	t.Run("redacted with graph", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, InspectSession(ctx, stack, "p1", InspectOptions{Redact: true, Graph: true}, &out))
		assert.NotContains(t, out.String(), "Alice")
		assert.Contains(t, out.String(), "stateDiagram-v2")
		assert.Contains(t, out.String(), "class AWAIT_AGE current")

		stored, err := stack.Sessions.Load(ctx, "p1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", stored.Fields[domain.FieldName])
	})

	t.Run("idle", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, InspectSession(ctx, stack, "nobody", InspectOptions{}, &out))
		assert.Contains(t, out.String(), "no active session")
	})
}

func TestRemoveSession(t *testing.T) {
	stack := openStack(t, map[string]string{config.KeyStoreURL: "memory://"})
	seed(t, stack, "p1", domain.StateAwaitPhoto)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, RemoveSession(ctx, stack, "p1", &out))
	assert.Contains(t, out.String(), "removed")

	sess, err := stack.Sessions.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateNone, sess.State)
}

func TestShowProfile(t *testing.T) {
	cfg := testConfig(t, map[string]string{config.KeyStoreURL: "memory://"})
	stack := openStack(t, map[string]string{config.KeyStoreURL: "memory://"})
	ctx := context.Background()

	err := ShowProfile(ctx, cfg, stack, "p1", false, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)

	require.NoError(t, stack.Profiles.Put(ctx, "p1", domain.Profile{
		Name:      "Alice",
		Age:       30,
		Gender:    domain.GenderFemale,
		Photo:     domain.Photo{FileID: "f1", UniqueID: "u1"},
		Education: domain.EducationHigher,
		WantsNews: true,
	}))

	var out bytes.Buffer
	require.NoError(t, ShowProfile(ctx, cfg, stack, "p1", false, &out))
	assert.Contains(t, out.String(), "Name: Alice")
	assert.Contains(t, out.String(), "Age: 30")

	out.Reset()
	require.NoError(t, ShowProfile(ctx, cfg, stack, "p1", true, &out))
	assert.Contains(t, out.String(), `"photo_id": "f1"`)
}

func TestPrintGraph(t *testing.T) {
	var out bytes.Buffer
	PrintGraph(&out)
	assert.True(t, strings.HasPrefix(out.String(), "stateDiagram-v2"))
	assert.Contains(t, out.String(), "AWAIT_NEWS")
	assert.NotContains(t, out.String(), "current")
}
