package cli

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formbot/internal/config"
	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/adapters/file"
	"github.com/aretw0/formbot/pkg/adapters/memory"
	"github.com/aretw0/formbot/pkg/adapters/redis"
	"github.com/aretw0/formbot/pkg/adapters/sqlite"
	"github.com/aretw0/formbot/pkg/domain"
)

func testConfig(t *testing.T, values map[string]string) *config.Config {
	t.Helper()
	all := config.Defaults()
	for k, v := range values {
		all[k] = v
	}
	cfg, err := config.Decode(all)
	require.NoError(t, err)
	return cfg
}

func openStack(t *testing.T, values map[string]string) *Stack {
	t.Helper()
	stack, err := OpenStack(testConfig(t, values), logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = stack.Close() })
	return stack
}

func TestOpenStack_Memory(t *testing.T) {
	stack := openStack(t, map[string]string{config.KeyStoreURL: "memory://"})

	assert.IsType(t, &memory.Store{}, stack.Sessions)
	assert.IsType(t, &memory.Profiles{}, stack.Profiles)
	assert.Nil(t, stack.Locker)
}

func TestOpenStack_File(t *testing.T) {
	root := t.TempDir()
	stack := openStack(t, map[string]string{config.KeyStoreURL: "file://" + root})
	assert.IsType(t, &file.Store{}, stack.Sessions)

	ctx := context.Background()
	sess := domain.NewSession("p1")
	sess.State = domain.StateAwaitAge
	sess.Fields[domain.FieldName] = "Alice"
	require.NoError(t, stack.Sessions.Save(ctx, "p1", sess))
	assert.FileExists(t, filepath.Join(root, "sessions", "p1.json"))
}

func TestOpenStack_RedisSharesClient(t *testing.T) {
	mr := miniredis.RunT(t)
	url := "redis://" + mr.Addr() + "/0"
	stack := openStack(t, map[string]string{
		config.KeyStoreURL:        url,
		config.KeyDistributedLock: "true",
		config.KeyKeyPrefix:       "test:",
	})

	assert.IsType(t, &redis.Store{}, stack.Sessions)
	require.NotNil(t, stack.Locker)
	assert.Len(t, stack.clients, 1)

	ctx := context.Background()
	sess := domain.NewSession("p1")
	sess.State = domain.StateAwaitName
	require.NoError(t, stack.Sessions.Save(ctx, "p1", sess))
	assert.True(t, mr.Exists("test:session:p1"))
}

func TestOpenStack_SQLiteProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.db")
	stack := openStack(t, map[string]string{
		config.KeyStoreURL:        "memory://",
		config.KeyProfileStoreURL: "sqlite://" + path,
	})

	assert.IsType(t, &sqlite.Profiles{}, stack.Profiles)
	assert.FileExists(t, path)
}

func TestOpenStack_Encryption(t *testing.T) {
	key := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	stack := openStack(t, map[string]string{
		config.KeyStoreURL:      "memory://",
		config.KeyEncryptionKey: key,
	})

	ctx := context.Background()
	sess := domain.NewSession("p1")
	sess.State = domain.StateAwaitAge
	sess.Fields[domain.FieldName] = "Alice"
	require.NoError(t, stack.Sessions.Save(ctx, "p1", sess))

	raw, err := stack.Raw.Load(ctx, "p1")
	require.NoError(t, err)
	assert.NotContains(t, raw.Fields, domain.FieldName)

	loaded, err := stack.Sessions.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", loaded.Fields[domain.FieldName])
}

func TestOpenStack_Errors(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{"unknown scheme", map[string]string{config.KeyStoreURL: "etcd://x"}, "unsupported scheme"},
		{"sqlite sessions", map[string]string{config.KeyStoreURL: "sqlite://x.db"}, "unsupported scheme"},
		{"lock without redis", map[string]string{config.KeyStoreURL: "memory://", config.KeyDistributedLock: "true"}, config.KeyDistributedLock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenStack(testConfig(t, tt.values), logging.NewNop())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewEngine_PromptsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	writeFile(t, path, "messages:\n  intro: Hi there\n")

	cfg := testConfig(t, map[string]string{config.KeyStoreURL: "memory://", config.KeyPromptsFile: path})
	stack := openStack(t, map[string]string{config.KeyStoreURL: "memory://"})

	engine, err := NewEngine(cfg, stack, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Hi there", engine.Catalog().Text("intro"))

	cfg.PromptsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewEngine(cfg, stack, logging.NewNop())
	assert.ErrorContains(t, err, "load prompts")
}

func TestNewRunner_Metrics(t *testing.T) {
	cfg := testConfig(t, map[string]string{config.KeyStoreURL: "memory://"})
	stack := openStack(t, map[string]string{config.KeyStoreURL: "memory://"})
	reg, metrics := NewMetrics()

	engine, err := NewEngine(cfg, stack, logging.NewNop(), metrics.Hooks())
	require.NoError(t, err)
	r := NewRunner(cfg, engine, logging.NewNop(), metrics)
	defer drain(r, logging.NewNop())

	reply, err := r.Dispatch(context.Background(), "p1", domain.TextEvent("/fillform"))
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "formbot_events_total")
	assert.Contains(t, names, "formbot_transitions_total")
	assert.Contains(t, names, "go_goroutines")
}
