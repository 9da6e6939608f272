package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository"
)

// NotificationService stores notification records and serves them to their
// owners.
type NotificationService struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Store persists a notification record. Storing the same id twice is a no-op.
func (s *NotificationService) Store(ctx context.Context, n *domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	s.logger.DebugContext(ctx, "notification stored",
		slog.String("notification_id", n.ID),
		slog.String("user_id", n.UserID),
		slog.String("kind", n.Kind),
	)
	return nil
}

// List returns a page of the user's notifications and the total count.
func (s *NotificationService) List(ctx context.Context, userID string, page, perPage int) ([]domain.Notification, int, error) {
	list, total, err := s.repo.ListByUser(ctx, userID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return list, total, nil
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, userID, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}
