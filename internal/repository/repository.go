package repository

import (
	"context"
	"time"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
)

// ReviewMutator receives the caller's current review of a book (nil when there
// is none) and returns the review to store.
type ReviewMutator func(existing *domain.Review) (*domain.Review, error)

// ReviewRepository defines persistence for reviews and their likes. Every
// method that adds or removes a review also recomputes the book's average
// rating in the same transaction.
type ReviewRepository interface {
	// Upsert locks the book row, applies fn to the existing review, writes
	// the result and recomputes the book's average rating. It returns
	// ErrNotFound when the book does not exist.
	Upsert(ctx context.Context, userID, bookID string, fn ReviewMutator) (*domain.Review, error)

	// GetByID retrieves a review with its likes.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// GetByUserAndBook retrieves the caller's review of a book.
	GetByUserAndBook(ctx context.Context, userID, bookID string) (*domain.Review, error)

	// Delete removes a review once authorize accepts it and recomputes the
	// book's average rating.
	Delete(ctx context.Context, id string, authorize func(*domain.Review) error) (*domain.Review, error)

	// ToggleLike flips userID's membership in the review's like set.
	ToggleLike(ctx context.Context, reviewID, userID string) (domain.LikeState, error)

	// List returns one page of a book's reviews read from a single snapshot.
	List(ctx context.Context, q domain.ReviewQuery) (*domain.ReviewPage, error)
}

// BookRepository defines read access to the catalog plus the rating repair.
// Books are only created or changed through ChangeRequestRepository.Approve.
type BookRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	Exists(ctx context.Context, id string) (bool, error)

	// RecomputeRating rewrites avg_rating from the current reviews.
	RecomputeRating(ctx context.Context, id string) (float64, error)
}

// ChangeRequestRepository defines persistence for the moderation queue.
type ChangeRequestRepository interface {
	Create(ctx context.Context, cr *domain.ChangeRequest) error
	GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error)

	// ListByStatus returns requests in the given status, newest first.
	ListByStatus(ctx context.Context, status string) ([]domain.ChangeRequest, error)

	// ListByRequester returns one user's requests, newest first.
	ListByRequester(ctx context.Context, requesterID string) ([]domain.ChangeRequest, error)

	// Approve accepts a pending request and applies its payload to the
	// catalog atomically. newBookID is used only for create requests.
	Approve(ctx context.Context, id, adminID, newBookID string, now time.Time) (*domain.ChangeRequest, *domain.Book, error)

	// Reject denies a pending request. The catalog is not touched.
	Reject(ctx context.Context, id, adminID string, now time.Time) (*domain.ChangeRequest, error)
}

// NotificationRepository defines persistence for notification records.
type NotificationRepository interface {
	// Create inserts n. Inserting an existing id is a no-op so redelivered
	// events do not duplicate records.
	Create(ctx context.Context, n *domain.Notification) error

	ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Notification, int, error)

	// MarkRead flags one of userID's notifications as read.
	MarkRead(ctx context.Context, id, userID string, now time.Time) (*domain.Notification, error)
}
