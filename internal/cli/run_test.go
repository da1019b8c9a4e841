package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formbot/internal/config"
	"github.com/aretw0/formbot/internal/logging"
)

func TestRunConsole_FullDialogue(t *testing.T) {
	root := t.TempDir()
	cfg := testConfig(t, map[string]string{config.KeyStoreURL: "file://" + root})

	input := strings.Join([]string{
		"/fillform",
		"Alice",
		"30",
		"!female",
		"@photo-1:uniq-1",
		"!high_education",
		"!agreed",
		"/showdata",
	}, "\n") + "\n"
	var out bytes.Buffer

	err := RunConsole(context.Background(), cfg, logging.NewNop(), ConsoleOptions{
		ParticipantID: "tester",
		In:            strings.NewReader(input),
		Out:           &out,
	})
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Please enter your name.")
	assert.Contains(t, text, "Now enter your age.")
	assert.Contains(t, text, "Thank you! Your data has been saved.")
	assert.Contains(t, text, "Name: Alice")
	assert.NotContains(t, text, ">>> error")

	// Profiles outlive the process on the file store.
	stack := openStack(t, map[string]string{config.KeyStoreURL: "file://" + root})
	profile, err := stack.Profiles.Get(context.Background(), "tester")
	require.NoError(t, err)
	assert.Equal(t, "photo-1", profile.Photo.FileID)
	assert.True(t, profile.WantsNews)
}

func TestRunConsole_BadStore(t *testing.T) {
	cfg := testConfig(t, map[string]string{config.KeyStoreURL: "ftp://nowhere"})
	err := RunConsole(context.Background(), cfg, logging.NewNop(), ConsoleOptions{In: strings.NewReader(""), Out: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "unsupported scheme")
}

func TestRunTelegram_RequiresToken(t *testing.T) {
	cfg := testConfig(t, map[string]string{config.KeyStoreURL: "memory://"})
	err := RunTelegram(context.Background(), cfg, logging.NewNop())

	var missing *config.MissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{config.KeyTelegramToken}, missing.Keys)
}

func TestHandleExecutionError(t *testing.T) {
	assert.NoError(t, HandleExecutionError(context.Canceled))
	assert.NoError(t, HandleExecutionError(nil))
	assert.EqualError(t, HandleExecutionError(assert.AnError), assert.AnError.Error())
}

func TestSignalContext_Run(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sc := NewSignalContext(parent)

	err := sc.Run(logging.NewNop(), func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, sc.Signal())
}

func TestWithMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	logger := logging.NewNop()

	finish := func(t *testing.T, fn func() error) error {
		t.Helper()
		done := make(chan error, 1)
		go func() { done <- fn() }()
		select {
		case err := <-done:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("withMetricsServer did not return")
			return nil
		}
	}

	t.Run("returns when the bot stops on its own", func(t *testing.T) {
		err := finish(t, func() error {
			return withMetricsServer(context.Background(), "127.0.0.1:0", reg, logger, func(context.Context) error {
				return nil
			})
		})
		assert.NoError(t, err)
	})

	t.Run("bot error wins", func(t *testing.T) {
		boom := errors.New("poll failed")
		err := finish(t, func() error {
			return withMetricsServer(context.Background(), "127.0.0.1:0", reg, logger, func(context.Context) error {
				return boom
			})
		})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("listener failure stops the bot", func(t *testing.T) {
		err := finish(t, func() error {
			return withMetricsServer(context.Background(), "no-port", reg, logger, func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			})
		})
		assert.ErrorContains(t, err, "missing port")
	})

	t.Run("no address runs the bot alone", func(t *testing.T) {
		called := false
		require.NoError(t, withMetricsServer(context.Background(), "", reg, logger, func(context.Context) error {
			called = true
			return nil
		}))
		assert.True(t, called)
	})
}
