package service

import (
	"context"
	"log/slog"
	"time"

	"snapshare/internal/events"
	"snapshare/internal/middleware"
)

// publish hands evt to p. Failures are logged and never change the outcome
// of the operation that produced the event.
func publish(ctx context.Context, p events.Publisher, evt events.Event) {
	if p == nil {
		return
	}
	evt.At = time.Now().UTC()
	if err := p.Publish(ctx, evt); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", evt.Type),
			slog.String("post_slug", evt.PostSlug),
			slog.String("error", err.Error()),
		)
	}
}
