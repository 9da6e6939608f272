package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/database"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

// Likes come back in the order they were given.
const reviewColumns = `r.id, r.user_id, r.book_id, r.rating, r.description, r.is_spoiler, r.start_date, r.end_date,
	ARRAY(SELECT l.user_id FROM review_likes l WHERE l.review_id = r.id ORDER BY l.created_at, l.user_id) AS likes,
	r.created_at, r.updated_at`

const (
	selectReviewByIDSQL       = `SELECT ` + reviewColumns + ` FROM reviews r WHERE r.id = $1`
	selectReviewByUserBookSQL = `SELECT ` + reviewColumns + ` FROM reviews r WHERE r.user_id = $1 AND r.book_id = $2`
	insertReviewSQL           = `INSERT INTO reviews (id, user_id, book_id, rating, description, is_spoiler, start_date, end_date, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	updateReviewSQL           = `UPDATE reviews SET rating = $2, description = $3, is_spoiler = $4, start_date = $5, end_date = $6, updated_at = $7 WHERE id = $1`
	deleteReviewSQL           = `DELETE FROM reviews WHERE id = $1`

	lockReviewSQL = `SELECT id FROM reviews WHERE id = $1 FOR UPDATE`
	unlikeSQL     = `DELETE FROM review_likes WHERE review_id = $1 AND user_id = $2`
	likeSQL       = `INSERT INTO review_likes (review_id, user_id, created_at) VALUES ($1, $2, now()) ON CONFLICT DO NOTHING`
	countLikesSQL = `SELECT count(*) FROM review_likes WHERE review_id = $1`

	countReviewsSQL = `SELECT count(*) FROM reviews r WHERE r.book_id = $1 AND ($2::int IS NULL OR r.rating = $2)`
	pageReviewsSQL  = `SELECT ` + reviewColumns + ` FROM reviews r
		WHERE r.book_id = $1 AND ($2::int IS NULL OR r.rating = $2)
		ORDER BY r.created_at DESC, r.seq DESC
		LIMIT $3 OFFSET $4`
	ratingHistogramSQL = `SELECT rating, count(*) FROM reviews WHERE book_id = $1 GROUP BY rating`
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Upsert creates or updates userID's review of bookID and recomputes the
// book's average rating before committing. Concurrent writers for the same
// book queue on the book row lock.
func (r *ReviewRepository) Upsert(ctx context.Context, userID, bookID string, fn repository.ReviewMutator) (review *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewRepository.Upsert", insertReviewSQL)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := lockBook(ctx, tx, bookID); err != nil {
			return err
		}

		existing, err := scanReview(tx.QueryRow(ctx, selectReviewByUserBookSQL, userID, bookID), bookID)
		if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}

		next, err := fn(existing)
		if err != nil {
			return err
		}

		if existing == nil {
			err = insertReview(ctx, tx, next)
		} else {
			err = updateReview(ctx, tx, next)
		}
		if err != nil {
			return err
		}

		if _, err := recomputeRating(ctx, tx, bookID); err != nil {
			return err
		}
		review = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// GetByID retrieves a review and its likes.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (review *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewRepository.GetByID", selectReviewByIDSQL)
	defer func() { end(err) }()

	return scanReview(r.pool.QueryRow(ctx, selectReviewByIDSQL, id), id)
}

// GetByUserAndBook retrieves userID's review of bookID.
func (r *ReviewRepository) GetByUserAndBook(ctx context.Context, userID, bookID string) (review *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewRepository.GetByUserAndBook", selectReviewByUserBookSQL)
	defer func() { end(err) }()

	return scanReview(r.pool.QueryRow(ctx, selectReviewByUserBookSQL, userID, bookID), bookID)
}

// Delete removes a review and its likes, then recomputes the book's rating.
func (r *ReviewRepository) Delete(ctx context.Context, id string, authorize func(*domain.Review) error) (review *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewRepository.Delete", deleteReviewSQL)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := scanReview(tx.QueryRow(ctx, selectReviewByIDSQL, id), id)
		if err != nil {
			return err
		}
		if err := authorize(existing); err != nil {
			return err
		}
		if _, err := lockBook(ctx, tx, existing.BookID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, deleteReviewSQL, id)
		if err != nil {
			return fmt.Errorf("delete review: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("review", id)
		}

		if _, err := recomputeRating(ctx, tx, existing.BookID); err != nil {
			return err
		}
		review = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return review, nil
}

// ToggleLike removes userID's like if present and adds it otherwise. Toggles
// on the same review are serialized by the review row lock. The book's
// rating is never touched.
func (r *ReviewRepository) ToggleLike(ctx context.Context, reviewID, userID string) (state domain.LikeState, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewRepository.ToggleLike", unlikeSQL)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var id string
		if err := tx.QueryRow(ctx, lockReviewSQL, reviewID).Scan(&id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NotFound("review", reviewID)
			}
			return fmt.Errorf("lock review: %w", err)
		}

		tag, err := tx.Exec(ctx, unlikeSQL, reviewID, userID)
		if err != nil {
			return fmt.Errorf("remove like: %w", err)
		}
		state.HasLiked = tag.RowsAffected() == 0

		if state.HasLiked {
			if _, err := tx.Exec(ctx, likeSQL, reviewID, userID); err != nil {
				return fmt.Errorf("add like: %w", err)
			}
		}

		if err := tx.QueryRow(ctx, countLikesSQL, reviewID).Scan(&state.Likes); err != nil {
			return fmt.Errorf("count likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.LikeState{}, err
	}
	return state, nil
}

// List runs the count, the page and the histogram in one repeatable-read
// snapshot so the three agree with each other.
func (r *ReviewRepository) List(ctx context.Context, q domain.ReviewQuery) (page *domain.ReviewPage, err error) {
	ctx, end := database.TraceQuery(ctx, "ReviewRepository.List", pageReviewsSQL)
	defer func() { end(err) }()

	err = database.InTxWith(ctx, r.pool, database.ReadSnapshot, func(tx pgx.Tx) error {
		var total int
		if err := tx.QueryRow(ctx, countReviewsSQL, q.BookID, q.Rating).Scan(&total); err != nil {
			return fmt.Errorf("count reviews: %w", err)
		}

		reviews, err := listReviewPage(ctx, tx, q)
		if err != nil {
			return err
		}

		dist, err := ratingHistogram(ctx, tx, q.BookID)
		if err != nil {
			return err
		}

		page = domain.NewReviewPage(q, reviews, total, dist)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func listReviewPage(ctx context.Context, q database.Querier, rq domain.ReviewQuery) ([]domain.Review, error) {
	rows, err := q.Query(ctx, pageReviewsSQL, rq.BookID, rq.Rating, rq.PageSize, rq.Offset())
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows, "")
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, *rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

func ratingHistogram(ctx context.Context, q database.Querier, bookID string) (domain.RatingDistribution, error) {
	rows, err := q.Query(ctx, ratingHistogramSQL, bookID)
	if err != nil {
		return nil, fmt.Errorf("rating histogram: %w", err)
	}
	defer rows.Close()

	dist := domain.NewRatingDistribution()
	for rows.Next() {
		var rating, count int
		if err := rows.Scan(&rating, &count); err != nil {
			return nil, fmt.Errorf("scan histogram row: %w", err)
		}
		dist[rating] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate histogram rows: %w", err)
	}
	return dist, nil
}

func insertReview(ctx context.Context, q database.Querier, rv *domain.Review) error {
	_, err := q.Exec(ctx, insertReviewSQL,
		rv.ID,
		rv.UserID,
		rv.BookID,
		rv.Rating,
		rv.Description,
		rv.IsSpoiler,
		rv.StartDate,
		rv.EndDate,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func updateReview(ctx context.Context, q database.Querier, rv *domain.Review) error {
	_, err := q.Exec(ctx, updateReviewSQL,
		rv.ID,
		rv.Rating,
		rv.Description,
		rv.IsSpoiler,
		rv.StartDate,
		rv.EndDate,
		rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	return nil
}

func scanReview(row pgx.Row, key string) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID,
		&rv.UserID,
		&rv.BookID,
		&rv.Rating,
		&rv.Description,
		&rv.IsSpoiler,
		&rv.StartDate,
		&rv.EndDate,
		&rv.Likes,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", key)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	if rv.Likes == nil {
		rv.Likes = []string{}
	}
	return &rv, nil
}
