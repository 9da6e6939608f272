// Package http exposes the catalog core over a JSON REST API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/service"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/httputil"
)

// ReviewService is the review ledger as the handlers see it.
type ReviewService interface {
	SubmitReview(ctx context.Context, input service.SubmitReviewInput) (*domain.Review, error)
	GetUserReview(ctx context.Context, userID, bookID string) (*domain.Review, error)
	GetReview(ctx context.Context, id string) (*domain.Review, error)
	DeleteReview(ctx context.Context, id, callerID string, isAdmin bool) error
	ToggleLike(ctx context.Context, reviewID, userID string) (domain.LikeState, error)
	ListReviews(ctx context.Context, q domain.ReviewQuery) (*domain.ReviewPage, error)
}

// BookService is the catalog lookup.
type BookService interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	RecomputeRating(ctx context.Context, id string) (float64, error)
}

// ChangeRequestService is the moderation queue.
type ChangeRequestService interface {
	Submit(ctx context.Context, input service.SubmitChangeRequestInput) (*domain.ChangeRequest, error)
	ListPending(ctx context.Context) ([]domain.ChangeRequest, error)
	ListMine(ctx context.Context, requesterID string) ([]domain.ChangeRequest, error)
	Get(ctx context.Context, id, callerID string, isAdmin bool) (*domain.ChangeRequest, error)
	Approve(ctx context.Context, id, adminID string) (*domain.ChangeRequest, *domain.Book, error)
	Reject(ctx context.Context, id, adminID string) (*domain.ChangeRequest, error)
}

// NotificationService lists and acknowledges a user's notifications.
type NotificationService interface {
	List(ctx context.Context, userID string, page, perPage int) ([]domain.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error)
}

// pathUUID reads a chi URL parameter that must be a UUID.
func pathUUID(r *http.Request, param string) (string, error) {
	return httputil.ParseUUID(param, chi.URLParam(r, param))
}

// queryInt returns nil when the parameter is absent.
func queryInt(r *http.Request, param string) (*int, error) {
	raw := r.URL.Query().Get(param)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, apperrors.InvalidArgument(param, "must be an integer")
	}
	return &v, nil
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, *raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.InvalidInput(field + " must be a date (YYYY-MM-DD) or an RFC 3339 timestamp")
}
