package dispatcher

import (
	"context"

	"github.com/garyjia/ops-approval/internal/domain/entity"
	"github.com/garyjia/ops-approval/internal/domain/event"
)

// Handler processes approval events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// ForBusinessType wraps a handler so it only sees events about records of businessType
func ForBusinessType(businessType entity.BusinessType, next Handler) Handler {
	return func(ctx context.Context, evt *event.Event) error {
		if evt.BusinessType != businessType {
			return nil
		}
		return next(ctx, evt)
	}
}
