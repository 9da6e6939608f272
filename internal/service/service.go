// Package service holds the catalog's business operations. Services depend on
// repository interfaces and publish domain events after their writes commit;
// a failed publish is logged and never fails the operation.
package service

import (
	"context"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
)

// Notifier records a notification for a user. Record must not wait for any
// delivery to the user.
type Notifier interface {
	Record(ctx context.Context, userID, kind, details string) error
}

// ReviewEvents publishes review lifecycle events.
type ReviewEvents interface {
	PublishReviewSubmitted(ctx context.Context, review *domain.Review, created bool) error
	PublishReviewDeleted(ctx context.Context, review *domain.Review) error
}

// ChangeRequestEvents publishes moderation lifecycle events.
type ChangeRequestEvents interface {
	PublishChangeRequestSubmitted(ctx context.Context, cr *domain.ChangeRequest) error
	PublishChangeRequestDecided(ctx context.Context, cr *domain.ChangeRequest) error
}
