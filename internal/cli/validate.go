package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/formbot/internal/catalog"
	"github.com/aretw0/formbot/internal/runtime"
)

// ErrInvalidPrompts is returned by ValidatePrompts once the problems are printed.
var ErrInvalidPrompts = errors.New("prompts file is not usable")

// ValidatePrompts merges the override at path onto the built-in catalog and
// checks it against the transition table. An empty path checks the built-in catalog.
func ValidatePrompts(path string, w io.Writer) error {
	name := path
	if name == "" {
		name = "built-in catalog"
	}

	cat, err := catalog.Load(path)
	if err != nil {
		fmt.Fprintf(w, "✗ %s\n  %v\n", name, err)
		return fmt.Errorf("%w: %w", ErrInvalidPrompts, err)
	}

	err = runtime.ValidateTable(runtime.DefaultTable(), runtime.EntryState, cat)
	var tableErr *runtime.TableError
	if errors.As(err, &tableErr) {
		fmt.Fprintf(w, "✗ %s: %d problems\n", name, len(tableErr.Problems))
		for _, p := range tableErr.Problems {
			fmt.Fprintf(w, "  - %s\n", p)
		}
		return ErrInvalidPrompts
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "✓ %s is valid\n", name)
	return nil
}
