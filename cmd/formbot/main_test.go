package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/formbot/internal/cli"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	chdir(t, t.TempDir())
	out, err := executeCommand(t, args...)
	require.NoError(t, err)
	return out
}

func TestVersionCommand(t *testing.T) {
	assert.True(t, strings.HasPrefix(execute(t, "version"), "formbot version "))
}

func TestGraphCommand(t *testing.T) {
	assert.Contains(t, execute(t, "graph"), "stateDiagram-v2")
}

func TestSessionLs_MemoryStore(t *testing.T) {
	assert.Contains(t, execute(t, "--store", "memory://", "session", "ls"), "No active sessions")
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("messages:\n  intro: Hi there\n"), 0o644))
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("messages:\n  intro: \"\"\nprompts:\n  AWAIT_AGE: \"\"\n"), 0o644))
	badTemplate := filepath.Join(dir, "template.yaml")
	require.NoError(t, os.WriteFile(badTemplate, []byte("summary: \"{{ .Nope\"\n"), 0o644))

	t.Run("built-in catalog", func(t *testing.T) {
		out, err := executeCommand(t, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "built-in catalog is valid")
	})

	t.Run("good override", func(t *testing.T) {
		out, err := executeCommand(t, "validate", good)
		require.NoError(t, err)
		assert.Contains(t, out, "good.yaml is valid")
	})

	t.Run("broken override", func(t *testing.T) {
		out, err := executeCommand(t, "validate", broken)
		assert.ErrorIs(t, err, cli.ErrInvalidPrompts)
		assert.Contains(t, out, "catalog is missing message 'intro'")
		assert.Contains(t, out, "catalog has no prompt for 'AWAIT_AGE'")
	})

	t.Run("unparsable summary", func(t *testing.T) {
		out, err := executeCommand(t, "validate", badTemplate)
		assert.ErrorIs(t, err, cli.ErrInvalidPrompts)
		assert.Contains(t, out, "invalid summary template")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := executeCommand(t, "validate", filepath.Join(dir, "nope.yaml"))
		assert.ErrorIs(t, err, cli.ErrInvalidPrompts)
	})
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir on Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
