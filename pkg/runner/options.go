package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/formbot/internal/catalog"
	"github.com/aretw0/formbot/pkg/domain"
)

// Observer is notified once per processed event.
// Outcome is one of the Outcome* constants.
type Observer func(kind domain.EventKind, outcome string, elapsed time.Duration)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithCatalog sets where the fallback replies (try_again, invalid_input) come from.
func WithCatalog(cat *catalog.Catalog) Option {
	return func(r *Runner) {
		r.catalog = cat
	}
}

// WithMaxInputSize overrides the sanitizer limit (bytes).
func WithMaxInputSize(limit int) Option {
	return func(r *Runner) {
		if limit > 0 {
			r.maxInput = limit
		}
	}
}

// WithObserver registers a callback for per-event metrics.
func WithObserver(obs Observer) Option {
	return func(r *Runner) {
		r.observer = obs
	}
}
