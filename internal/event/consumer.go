package event

import (
	"context"
	"log/slog"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	pkgkafka "github.com/TanaseDoru/BookReviewSite-sub000/pkg/kafka"
)

// ConsumerGroupID is the consumer group of the notification writer.
const ConsumerGroupID = "catalog-notifications"

// NotificationStore persists notification records.
type NotificationStore interface {
	Store(ctx context.Context, n *domain.Notification) error
}

// NotificationHandler turns notification.requested events into records.
type NotificationHandler struct {
	store  NotificationStore
	logger *slog.Logger
}

// NewNotificationHandler creates a new notification event handler.
func NewNotificationHandler(store NotificationStore, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		store:  store,
		logger: logger,
	}
}

// Handle stores the requested notification. Malformed events are logged and
// dropped rather than retried.
func (h *NotificationHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if event.EventType != TopicNotificationRequested {
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var data NotificationRequestedData
	if err := event.UnmarshalData(&data); err != nil {
		h.logger.ErrorContext(ctx, "failed to unmarshal notification.requested payload",
			slog.String("event_id", event.EventID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if data.NotificationID == "" || data.UserID == "" {
		h.logger.WarnContext(ctx, "notification.requested missing ids, dropping",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	n := &domain.Notification{
		ID:        data.NotificationID,
		UserID:    data.UserID,
		Kind:      data.Kind,
		Details:   data.Details,
		CreatedAt: event.Timestamp,
	}
	return h.store.Store(ctx, n)
}

// NewNotificationConsumer subscribes the handler to notification.requested.
// Deliveries already processed, according to idem, are skipped.
func NewNotificationConsumer(brokers []string, handler *NotificationHandler, idem pkgkafka.IdempotencyStore, logger *slog.Logger) *pkgkafka.Consumer {
	cfg := pkgkafka.ConsumerConfig{
		Brokers: brokers,
		GroupID: ConsumerGroupID,
		Topic:   TopicNotificationRequested,
	}
	h := pkgkafka.IdempotentHandler(idem, TopicNotificationRequested, handler.Handle, logger)
	return pkgkafka.NewConsumer(cfg, h, logger)
}
