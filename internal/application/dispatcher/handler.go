package dispatcher

import (
	"context"

	"github.com/garyjia/update-requests/internal/domain/event"
)

// Handler reacts to an update request event
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo describes a registered handler
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}
