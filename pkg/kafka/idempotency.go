package kafka

import (
	"context"
	"log/slog"
)

// IdempotencyStore remembers processed event ids. Implementations must be
// safe for concurrent use.
type IdempotencyStore interface {
	// Claim records eventID and reports whether this call was the first to
	// do so.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Release forgets eventID so a failed delivery can be retried.
	Release(ctx context.Context, eventID string) error
}

// IdempotentHandler skips events whose id was already claimed. The claim is
// released when inner fails. A store outage lets the event through: a
// duplicate notification is preferable to a lost one.
func IdempotentHandler(store IdempotencyStore, topic string, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			return inner(ctx, event)
		}

		first, err := store.Claim(ctx, event.EventID)
		if err != nil {
			logger.WarnContext(ctx, "idempotency claim failed, processing anyway",
				slog.String("event_id", event.EventID),
				slog.String("error", err.Error()),
			)
			return inner(ctx, event)
		}
		if !first {
			consumerDuplicates.WithLabelValues(topic).Inc()
			logger.DebugContext(ctx, "duplicate event skipped",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
			)
			return nil
		}

		if err := inner(ctx, event); err != nil {
			if relErr := store.Release(ctx, event.EventID); relErr != nil {
				logger.WarnContext(ctx, "idempotency release failed",
					slog.String("event_id", event.EventID),
					slog.String("error", relErr.Error()),
				)
			}
			return err
		}
		return nil
	}
}
