package domain

import (
	"fmt"
	"time"

	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

// Rating bounds and text limits for reviews.
const (
	MinRating            = 1
	MaxRating            = 5
	MaxDescriptionLength = 5000
)

// Review is one user's review of one book. (UserID, BookID) is unique.
type Review struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	BookID      string     `json:"bookId"`
	Rating      int        `json:"rating"`
	Description string     `json:"description"`
	IsSpoiler   bool       `json:"isSpoiler"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Likes       []string   `json:"likes"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ReviewPatch carries the fields of a review submission. Nil fields are left
// unchanged on update.
type ReviewPatch struct {
	Rating      *int
	Description *string
	IsSpoiler   *bool
	StartDate   *time.Time
	EndDate     *time.Time
}

// Validate checks the supplied fields only.
func (p ReviewPatch) Validate() error {
	if p.Rating != nil && (*p.Rating < MinRating || *p.Rating > MaxRating) {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	if p.Description != nil && len([]rune(*p.Description)) > MaxDescriptionLength {
		return apperrors.InvalidInput(fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	return nil
}

// NewReview builds the first review of userID for bookID. A rating is
// mandatory here even though updates may omit it.
func NewReview(id, userID, bookID string, p ReviewPatch, now time.Time) (*Review, error) {
	if p.Rating == nil {
		return nil, apperrors.InvalidInput("rating is required")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	now = now.Truncate(time.Microsecond)
	r := &Review{
		ID:        id,
		UserID:    userID,
		BookID:    bookID,
		Likes:     []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.set(p)
	return r, nil
}

// Apply overwrites the supplied fields. UpdatedAt always moves forward at
// timestamptz precision (microseconds), even when the clock has not advanced
// a full microsecond past the previous write.
func (r *Review) Apply(p ReviewPatch, now time.Time) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.set(p)
	now = now.Truncate(time.Microsecond)
	prev := r.UpdatedAt.Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	r.UpdatedAt = now
	return nil
}

func (r *Review) set(p ReviewPatch) {
	if p.Rating != nil {
		r.Rating = *p.Rating
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.IsSpoiler != nil {
		r.IsSpoiler = *p.IsSpoiler
	}
	if p.StartDate != nil {
		r.StartDate = p.StartDate
	}
	if p.EndDate != nil {
		r.EndDate = p.EndDate
	}
}

// LikedBy reports whether userID is in the like set.
func (r *Review) LikedBy(userID string) bool {
	for _, id := range r.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// LikeState is the result of a like toggle.
type LikeState struct {
	Likes    int  `json:"likes"`
	HasLiked bool `json:"hasLiked"`
}

// AverageRating is the arithmetic mean of ratings, or 0 for none.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings))
}
