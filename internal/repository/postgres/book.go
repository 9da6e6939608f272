package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/database"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

const bookColumns = `id, title, author_id, genres, pages, description, cover_image, publisher_id, avg_rating, created_at, updated_at`

const (
	selectBookSQL   = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	lockBookSQL     = `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR UPDATE`
	bookExistsSQL   = `SELECT EXISTS(SELECT 1 FROM books WHERE id = $1)`
	bookRatingsSQL  = `SELECT rating FROM reviews WHERE book_id = $1`
	setAvgRatingSQL = `UPDATE books SET avg_rating = $2 WHERE id = $1`
	insertBookSQL   = `INSERT INTO books (id, title, author_id, genres, pages, description, cover_image, publisher_id, avg_rating, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	updateBookSQL   = `UPDATE books SET title = $2, author_id = $3, genres = $4, pages = $5, description = $6, cover_image = $7, publisher_id = $8, updated_at = $9 WHERE id = $1`
)

// BookRepository implements repository.BookRepository using PostgreSQL.
type BookRepository struct {
	pool database.DBTX
}

// NewBookRepository creates a new PostgreSQL-backed book repository.
func NewBookRepository(pool database.DBTX) *BookRepository {
	return &BookRepository{pool: pool}
}

// GetByID retrieves a book by its ID.
func (r *BookRepository) GetByID(ctx context.Context, id string) (b *domain.Book, err error) {
	ctx, end := database.TraceQuery(ctx, "BookRepository.GetByID", selectBookSQL)
	defer func() { end(err) }()

	return scanBook(r.pool.QueryRow(ctx, selectBookSQL, id), id)
}

// Exists reports whether a book with the given ID exists.
func (r *BookRepository) Exists(ctx context.Context, id string) (exists bool, err error) {
	ctx, end := database.TraceQuery(ctx, "BookRepository.Exists", bookExistsSQL)
	defer func() { end(err) }()

	if err = r.pool.QueryRow(ctx, bookExistsSQL, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check book exists: %w", err)
	}
	return exists, nil
}

// RecomputeRating rewrites the book's average rating from its reviews while
// holding the book row lock, so it cannot interleave with a review write.
func (r *BookRepository) RecomputeRating(ctx context.Context, id string) (avg float64, err error) {
	ctx, end := database.TraceQuery(ctx, "BookRepository.RecomputeRating", setAvgRatingSQL)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := lockBook(ctx, tx, id); err != nil {
			return err
		}
		var err error
		avg, err = recomputeRating(ctx, tx, id)
		return err
	})
	return avg, err
}

// lockBook loads the book and holds its row lock until the transaction ends.
// All writes that affect avg_rating take this lock first.
func lockBook(ctx context.Context, q database.Querier, id string) (*domain.Book, error) {
	return scanBook(q.QueryRow(ctx, lockBookSQL, id), id)
}

// recomputeRating sets avg_rating to the mean of the book's current ratings,
// or 0 when it has none.
func recomputeRating(ctx context.Context, q database.Querier, bookID string) (float64, error) {
	rows, err := q.Query(ctx, bookRatingsSQL, bookID)
	if err != nil {
		return 0, fmt.Errorf("load ratings: %w", err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return 0, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate ratings: %w", err)
	}

	avg := domain.AverageRating(ratings)
	tag, err := q.Exec(ctx, setAvgRatingSQL, bookID, avg)
	if err != nil {
		return 0, fmt.Errorf("update avg rating: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, apperrors.NotFound("book", bookID)
	}
	return avg, nil
}

func insertBook(ctx context.Context, q database.Querier, b *domain.Book) error {
	_, err := q.Exec(ctx, insertBookSQL,
		b.ID,
		b.Title,
		b.AuthorID,
		b.Genres,
		b.Pages,
		b.Description,
		b.CoverImage,
		b.PublisherID,
		b.AvgRating,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

// updateBook writes the editable columns. avg_rating is deliberately absent.
func updateBook(ctx context.Context, q database.Querier, b *domain.Book) error {
	tag, err := q.Exec(ctx, updateBookSQL,
		b.ID,
		b.Title,
		b.AuthorID,
		b.Genres,
		b.Pages,
		b.Description,
		b.CoverImage,
		b.PublisherID,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("book", b.ID)
	}
	return nil
}

func scanBook(row pgx.Row, id string) (*domain.Book, error) {
	var b domain.Book
	err := row.Scan(
		&b.ID,
		&b.Title,
		&b.AuthorID,
		&b.Genres,
		&b.Pages,
		&b.Description,
		&b.CoverImage,
		&b.PublisherID,
		&b.AvgRating,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("book", id)
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	if b.Genres == nil {
		b.Genres = []string{}
	}
	return &b, nil
}
