package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

// SubmitReviewInput holds the parameters for creating or updating a review.
// Nil fields are left unchanged on update; Rating is required on create.
type SubmitReviewInput struct {
	UserID      string
	BookID      string
	Rating      *int
	Description *string
	IsSpoiler   *bool
	StartDate   *time.Time
	EndDate     *time.Time
}

func (in SubmitReviewInput) patch() domain.ReviewPatch {
	return domain.ReviewPatch{
		Rating:      in.Rating,
		Description: in.Description,
		IsSpoiler:   in.IsSpoiler,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}
}

// ReviewService implements the business logic for reviews and likes.
type ReviewService struct {
	repo   repository.ReviewRepository
	events ReviewEvents
	logger *slog.Logger
	now    func() time.Time
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ReviewRepository, events ReviewEvents, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:   repo,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SubmitReview creates the caller's review of a book or updates the existing
// one. The book's average rating is recomputed before the write commits.
func (s *ReviewService) SubmitReview(ctx context.Context, input SubmitReviewInput) (*domain.Review, error) {
	patch := input.patch()
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	created := false
	review, err := s.repo.Upsert(ctx, input.UserID, input.BookID, func(existing *domain.Review) (*domain.Review, error) {
		if existing == nil {
			created = true
			return domain.NewReview(uuid.New().String(), input.UserID, input.BookID, patch, now)
		}
		if err := existing.Apply(patch, now); err != nil {
			return nil, err
		}
		return existing, nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit review: %w", err)
	}

	outcome := "updated"
	if created {
		outcome = "created"
	}
	reviewsWritten.WithLabelValues(outcome).Inc()

	if err := s.events.PublishReviewSubmitted(ctx, review, created); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review "+outcome,
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// GetUserReview returns the caller's review of a book, or nil if there is
// none.
func (s *ReviewService) GetUserReview(ctx context.Context, userID, bookID string) (*domain.Review, error) {
	review, err := s.repo.GetByUserAndBook(ctx, userID, bookID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user review: %w", err)
	}
	return review, nil
}

// GetReview retrieves a review by its ID.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// DeleteReview removes a review. Only its author or an admin may do so.
func (s *ReviewService) DeleteReview(ctx context.Context, id, callerID string, isAdmin bool) error {
	review, err := s.repo.Delete(ctx, id, func(r *domain.Review) error {
		if r.UserID != callerID && !isAdmin {
			return apperrors.Forbidden("only the author or an admin can delete this review")
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	reviewsDeleted.Inc()

	if err := s.events.PublishReviewDeleted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
		slog.Bool("by_admin", review.UserID != callerID),
	)
	return nil
}

// ToggleLike likes the review for userID, or removes the like if present.
func (s *ReviewService) ToggleLike(ctx context.Context, reviewID, userID string) (domain.LikeState, error) {
	state, err := s.repo.ToggleLike(ctx, reviewID, userID)
	if err != nil {
		return domain.LikeState{}, fmt.Errorf("toggle like: %w", err)
	}

	action := "unlike"
	if state.HasLiked {
		action = "like"
	}
	likesToggled.WithLabelValues(action).Inc()

	return state, nil
}

// ListReviews returns a page of a book's reviews, newest first. Zero page
// and page size fall back to the defaults.
func (s *ReviewService) ListReviews(ctx context.Context, q domain.ReviewQuery) (*domain.ReviewPage, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = domain.DefaultReviewPageSize
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	page, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return page, nil
}
