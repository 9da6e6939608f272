package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

// SubmitChangeRequestInput holds the parameters for proposing a catalog change.
type SubmitChangeRequestInput struct {
	RequesterID  string
	Kind         string
	TargetBookID *string
	Payload      domain.BookPayload
}

// ChangeRequestService implements the moderation queue and its decisions.
type ChangeRequestService struct {
	repo     repository.ChangeRequestRepository
	books    repository.BookRepository
	events   ChangeRequestEvents
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewChangeRequestService creates a new change request service.
func NewChangeRequestService(
	repo repository.ChangeRequestRepository,
	books repository.BookRepository,
	events ChangeRequestEvents,
	notifier Notifier,
	logger *slog.Logger,
) *ChangeRequestService {
	return &ChangeRequestService{
		repo:     repo,
		books:    books,
		events:   events,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit queues a create or update request as pending. An update must name
// an existing book.
func (s *ChangeRequestService) Submit(ctx context.Context, input SubmitChangeRequestInput) (*domain.ChangeRequest, error) {
	cr, err := domain.NewChangeRequest(uuid.New().String(), input.RequesterID, input.Kind, input.TargetBookID, input.Payload, s.now())
	if err != nil {
		return nil, err
	}

	if cr.Kind == domain.ChangeKindUpdate {
		exists, err := s.books.Exists(ctx, *cr.TargetBookID)
		if err != nil {
			return nil, fmt.Errorf("check target book: %w", err)
		}
		if !exists {
			return nil, apperrors.NotFound("book", *cr.TargetBookID)
		}
	}

	if err := s.repo.Create(ctx, cr); err != nil {
		return nil, fmt.Errorf("create change request: %w", err)
	}
	changeRequestsSubmitted.WithLabelValues(cr.Kind).Inc()

	if err := s.events.PublishChangeRequestSubmitted(ctx, cr); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish change_request.submitted event",
			slog.String("request_id", cr.ID),
			slog.String("error", err.Error()),
		)
	}
	s.notify(ctx, cr)

	s.logger.InfoContext(ctx, "change request submitted",
		slog.String("request_id", cr.ID),
		slog.String("kind", cr.Kind),
	)
	return cr, nil
}

// ListPending returns the moderation queue, newest first.
func (s *ChangeRequestService) ListPending(ctx context.Context) ([]domain.ChangeRequest, error) {
	list, err := s.repo.ListByStatus(ctx, domain.ChangeStatusPending)
	if err != nil {
		return nil, fmt.Errorf("list pending change requests: %w", err)
	}
	return list, nil
}

// ListMine returns every request the caller submitted, newest first.
func (s *ChangeRequestService) ListMine(ctx context.Context, requesterID string) ([]domain.ChangeRequest, error) {
	list, err := s.repo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list change requests: %w", err)
	}
	return list, nil
}

// Get returns a request to its requester or to an admin.
func (s *ChangeRequestService) Get(ctx context.Context, id, callerID string, isAdmin bool) (*domain.ChangeRequest, error) {
	cr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get change request: %w", err)
	}
	if cr.RequesterID != callerID && !isAdmin {
		return nil, apperrors.Forbidden("only the requester or an admin can view this change request")
	}
	return cr, nil
}

// Approve accepts a pending request and applies it to the catalog in one
// transaction. Deciding an already decided request is a Conflict.
func (s *ChangeRequestService) Approve(ctx context.Context, id, adminID string) (*domain.ChangeRequest, *domain.Book, error) {
	cr, book, err := s.repo.Approve(ctx, id, adminID, uuid.New().String(), s.now())
	if err != nil {
		return nil, nil, fmt.Errorf("approve change request: %w", err)
	}
	s.decided(ctx, cr)

	s.logger.InfoContext(ctx, "change request approved",
		slog.String("request_id", cr.ID),
		slog.String("kind", cr.Kind),
		slog.String("book_id", book.ID),
	)
	return cr, book, nil
}

// Reject denies a pending request. The catalog is not changed.
func (s *ChangeRequestService) Reject(ctx context.Context, id, adminID string) (*domain.ChangeRequest, error) {
	cr, err := s.repo.Reject(ctx, id, adminID, s.now())
	if err != nil {
		return nil, fmt.Errorf("reject change request: %w", err)
	}
	s.decided(ctx, cr)

	s.logger.InfoContext(ctx, "change request rejected",
		slog.String("request_id", cr.ID),
		slog.String("kind", cr.Kind),
	)
	return cr, nil
}

func (s *ChangeRequestService) decided(ctx context.Context, cr *domain.ChangeRequest) {
	changeRequestsDecided.WithLabelValues(cr.Status).Inc()

	if err := s.events.PublishChangeRequestDecided(ctx, cr); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish change request decision event",
			slog.String("request_id", cr.ID),
			slog.String("status", cr.Status),
			slog.String("error", err.Error()),
		)
	}
	s.notify(ctx, cr)
}

// notify tells the requester about the request's current status. A failure
// is logged only.
func (s *ChangeRequestService) notify(ctx context.Context, cr *domain.ChangeRequest) {
	kind := domain.NotificationKindFor(cr.Status)
	if err := s.notifier.Record(ctx, cr.RequesterID, kind, cr.NotificationDetails()); err != nil {
		s.logger.WarnContext(ctx, "failed to record notification",
			slog.String("request_id", cr.ID),
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
	}
}
