package middleware

import (
	"context"

	"github.com/aretw0/formbot/pkg/ports"
)

// Middleware allows wrapping a SessionStore to add behavior.
// Wrappers keep ports.SessionLister when the wrapped store has it.
type Middleware func(ports.SessionStore) ports.SessionStore

type listing struct {
	ports.SessionStore
	lister ports.SessionLister
}

func (l listing) List(ctx context.Context) ([]string, error) {
	return l.lister.List(ctx)
}

// withLister re-exposes List from next on top of wrapped.
func withLister(wrapped, next ports.SessionStore) ports.SessionStore {
	if lister, ok := next.(ports.SessionLister); ok {
		return listing{SessionStore: wrapped, lister: lister}
	}
	return wrapped
}
