package services

import (
	"context"
	"log/slog"

	"cotizador/internal/amqp"
	"cotizador/internal/core"
)

// EventPublisher delivers quote change notifications.
type EventPublisher interface {
	PublishQuoteEvent(ctx context.Context, event *amqp.QuoteEvent) error
}

// publishQuoteEvent notifies after a committed write. Failures are logged only:
// the quote is already stored.
func publishQuoteEvent(ctx context.Context, pub EventPublisher, eventType amqp.EventType, q core.Quote) {
	if pub == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping quote event",
			"type", eventType, "quote_id", q.ID)
		return
	}
	if err := pub.PublishQuoteEvent(ctx, amqp.NewQuoteEvent(eventType, q.ID, q.Number, string(q.Status))); err != nil {
		slog.ErrorContext(ctx, "Failed to publish quote event",
			"type", eventType, "quote_id", q.ID, "quote_number", q.Number, "error", err)
	}
}
