package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	pkgkafka "github.com/TanaseDoru/BookReviewSite-sub000/pkg/kafka"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/logger"
)

// Kafka topic constants for catalog domain events.
const (
	TopicReviewSubmitted        = "catalog.review.submitted"
	TopicReviewDeleted          = "catalog.review.deleted"
	TopicChangeRequestSubmitted = "catalog.change_request.submitted"
	TopicChangeRequestApproved  = "catalog.change_request.approved"
	TopicChangeRequestRejected  = "catalog.change_request.rejected"
	TopicNotificationRequested  = "catalog.notification.requested"
)

// Aggregate type constants.
const (
	AggregateTypeReview        = "review"
	AggregateTypeChangeRequest = "change_request"
	AggregateTypeNotification  = "notification"
)

// SourceCatalogService identifies events originating from this service.
const SourceCatalogService = "catalog-service"

// ReviewData is the payload for review events.
type ReviewData struct {
	ReviewID string `json:"review_id"`
	UserID   string `json:"user_id"`
	BookID   string `json:"book_id"`
	Rating   int    `json:"rating"`
	Created  bool   `json:"created,omitempty"`
}

// ChangeRequestData is the payload for change request events.
type ChangeRequestData struct {
	RequestID     string  `json:"request_id"`
	RequesterID   string  `json:"requester_id"`
	Kind          string  `json:"kind"`
	Status        string  `json:"status"`
	TargetBookID  *string `json:"target_book_id,omitempty"`
	AppliedBookID *string `json:"applied_book_id,omitempty"`
	DecidedBy     *string `json:"decided_by,omitempty"`
}

// NotificationRequestedData asks the notification consumer to store a record.
type NotificationRequestedData struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	Kind           string `json:"kind"`
	Details        string `json:"details"`
}

// Publisher is the part of pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReviewSubmitted publishes a review.submitted event. created is true
// for a first review and false for an edit.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review, created bool) error {
	data := ReviewData{
		ReviewID: review.ID,
		UserID:   review.UserID,
		BookID:   review.BookID,
		Rating:   review.Rating,
		Created:  created,
	}
	return p.publish(ctx, TopicReviewSubmitted, review.BookID, AggregateTypeReview, data)
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	data := ReviewData{
		ReviewID: review.ID,
		UserID:   review.UserID,
		BookID:   review.BookID,
		Rating:   review.Rating,
	}
	return p.publish(ctx, TopicReviewDeleted, review.BookID, AggregateTypeReview, data)
}

// PublishChangeRequestSubmitted publishes a change_request.submitted event.
func (p *Producer) PublishChangeRequestSubmitted(ctx context.Context, cr *domain.ChangeRequest) error {
	return p.publish(ctx, TopicChangeRequestSubmitted, cr.ID, AggregateTypeChangeRequest, changeRequestData(cr))
}

// PublishChangeRequestDecided publishes change_request.approved or
// change_request.rejected depending on the request's status.
func (p *Producer) PublishChangeRequestDecided(ctx context.Context, cr *domain.ChangeRequest) error {
	topic := TopicChangeRequestRejected
	if cr.Status == domain.ChangeStatusAccepted {
		topic = TopicChangeRequestApproved
	}
	return p.publish(ctx, topic, cr.ID, AggregateTypeChangeRequest, changeRequestData(cr))
}

// Record asks for a notification record for userID. The record is written
// asynchronously by the notification consumer.
func (p *Producer) Record(ctx context.Context, userID, kind, details string) error {
	data := NotificationRequestedData{
		NotificationID: uuid.New().String(),
		UserID:         userID,
		Kind:           kind,
		Details:        details,
	}
	// Keyed by user so one user's notifications stay in order.
	return p.publish(ctx, TopicNotificationRequested, userID, AggregateTypeNotification, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCatalogService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func changeRequestData(cr *domain.ChangeRequest) ChangeRequestData {
	return ChangeRequestData{
		RequestID:     cr.ID,
		RequesterID:   cr.RequesterID,
		Kind:          cr.Kind,
		Status:        cr.Status,
		TargetBookID:  cr.TargetBookID,
		AppliedBookID: cr.AppliedBookID,
		DecidedBy:     cr.DecidedBy,
	}
}
