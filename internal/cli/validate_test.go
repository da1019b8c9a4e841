package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePrompts(t *testing.T) {
	dir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, ValidatePrompts("", &out))
	assert.Contains(t, out.String(), "✓ built-in catalog is valid")

	path := filepath.Join(dir, "prompts.yaml")
	writeFile(t, path, "rejects:\n  AWAIT_NEWS: \"\"\n")
	out.Reset()
	err := ValidatePrompts(path, &out)
	assert.ErrorIs(t, err, ErrInvalidPrompts)
	assert.Contains(t, out.String(), "catalog has no reject text for 'AWAIT_NEWS'")
}
