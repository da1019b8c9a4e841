package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/formbot/internal/logging"
	"github.com/aretw0/formbot/pkg/domain"
)

type hook = func(context.Context, *domain.TransitionEvent)

// ComposeHooks chains hook sets. Each callback runs in argument order; nil
// callbacks are skipped.
func ComposeHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	pick := func(get func(domain.LifecycleHooks) hook) hook {
		var fns []hook
		for _, s := range sets {
			if fn := get(s); fn != nil {
				fns = append(fns, fn)
			}
		}
		switch len(fns) {
		case 0:
			return nil
		case 1:
			return fns[0]
		}
		return func(ctx context.Context, e *domain.TransitionEvent) {
			for _, fn := range fns {
				fn(ctx, e)
			}
		}
	}
	return domain.LifecycleHooks{
		OnTransition: pick(func(h domain.LifecycleHooks) hook { return h.OnTransition }),
		OnReject:     pick(func(h domain.LifecycleHooks) hook { return h.OnReject }),
		OnComplete:   pick(func(h domain.LifecycleHooks) hook { return h.OnComplete }),
		OnCancel:     pick(func(h domain.LifecycleHooks) hook { return h.OnCancel }),
	}
}

// AuditHooks logs lifecycle events. Rejections stay at debug level.
// The per-event logger from the context is preferred, so lines carry the correlation id.
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	log := func(level slog.Level, msg string) hook {
		return func(ctx context.Context, e *domain.TransitionEvent) {
			l := logging.FromContext(ctx, logger)
			if l == logger {
				l = l.With("participant_id", e.ParticipantID)
			}
			l.Log(ctx, level, msg, "from", e.From, "to", e.To, "kind", e.Kind)
		}
	}
	return domain.LifecycleHooks{
		OnTransition: log(slog.LevelInfo, "Dialogue advanced"),
		OnReject:     log(slog.LevelDebug, "Answer rejected"),
		OnComplete:   log(slog.LevelInfo, "Dialogue completed"),
		OnCancel:     log(slog.LevelInfo, "Dialogue cancelled"),
	}
}
