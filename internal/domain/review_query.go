package domain

import (
	"fmt"

	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

const (
	DefaultReviewPageSize = 8
	MaxReviewPageSize     = 100
)

// ReviewQuery selects one page of a book's reviews, newest first.
type ReviewQuery struct {
	BookID   string
	Page     int
	PageSize int
	// Rating, when set, keeps only reviews with exactly this rating.
	Rating *int
}

func (q ReviewQuery) Validate() error {
	if q.Page < 1 {
		return apperrors.InvalidArgument("page", "must be a positive integer")
	}
	if q.PageSize < 1 || q.PageSize > MaxReviewPageSize {
		return apperrors.InvalidArgument("pageSize", fmt.Sprintf("must be between 1 and %d", MaxReviewPageSize))
	}
	if q.Rating != nil && (*q.Rating < MinRating || *q.Rating > MaxRating) {
		return apperrors.InvalidArgument("rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	return nil
}

func (q ReviewQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// RatingDistribution counts reviews per star value. Every value from
// MinRating to MaxRating is always present.
type RatingDistribution map[int]int

func NewRatingDistribution() RatingDistribution {
	d := make(RatingDistribution, MaxRating-MinRating+1)
	for r := MinRating; r <= MaxRating; r++ {
		d[r] = 0
	}
	return d
}

// Total is the number of reviews across all ratings.
func (d RatingDistribution) Total() int {
	n := 0
	for _, c := range d {
		n += c
	}
	return n
}

// ReviewPage is one page of a book's reviews. TotalReviews counts the
// filtered set; RatingDistribution always covers every review of the book.
type ReviewPage struct {
	Reviews            []Review           `json:"reviews"`
	TotalReviews       int                `json:"totalReviews"`
	TotalPages         int                `json:"totalPages"`
	CurrentPage        int                `json:"currentPage"`
	RatingDistribution RatingDistribution `json:"ratingDistribution"`
}

// NewReviewPage derives TotalPages as ceil(total / pageSize).
func NewReviewPage(q ReviewQuery, reviews []Review, total int, dist RatingDistribution) *ReviewPage {
	if reviews == nil {
		reviews = []Review{}
	}
	return &ReviewPage{
		Reviews:            reviews,
		TotalReviews:       total,
		TotalPages:         (total + q.PageSize - 1) / q.PageSize,
		CurrentPage:        q.Page,
		RatingDistribution: dist,
	}
}
