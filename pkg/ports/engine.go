package ports

import (
	"context"

	"github.com/aretw0/formbot/pkg/domain"
)

// Dialogue is the driving port used by transports (Telegram, HTTP, console).
type Dialogue interface {
	// Handle consumes one event for one participant and returns what to show back.
	// Validation rejections are replies, not errors. An error means a store fault.
	Handle(ctx context.Context, participantID string, event domain.Event) (domain.Reply, error)
}
