package postgres

import (
	"regexp"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/database"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func sql(s string) string { return regexp.QuoteMeta(s) }

// anyArgs matches n positional arguments without pinning their values.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// ─── Book ───────────────────────────────────────────────────────────────────

var bookCols = []string{
	"id", "title", "author_id", "genres", "pages", "description", "cover_image",
	"publisher_id", "avg_rating", "created_at", "updated_at",
}

func sampleBook() domain.Book {
	return domain.Book{
		ID:          "book-1",
		Title:       "Dune",
		AuthorID:    "author-1",
		Genres:      []string{"sci-fi"},
		Pages:       412,
		Description: "Desert planet",
		CoverImage:  "dune.png",
		PublisherID: "pub-1",
		AvgRating:   4.5,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func bookRow(b domain.Book) []any {
	return []any{
		b.ID, b.Title, b.AuthorID, b.Genres, b.Pages, b.Description, b.CoverImage,
		b.PublisherID, b.AvgRating, b.CreatedAt, b.UpdatedAt,
	}
}

func expectLockBook(mock pgxmock.PgxPoolIface, b domain.Book) {
	mock.ExpectQuery(sql(lockBookSQL)).
		WithArgs(b.ID).
		WillReturnRows(pgxmock.NewRows(bookCols).AddRow(bookRow(b)...))
}

func expectRecompute(mock pgxmock.PgxPoolIface, bookID string, ratings []int, avg float64) {
	rows := pgxmock.NewRows([]string{"rating"})
	for _, r := range ratings {
		rows.AddRow(r)
	}
	mock.ExpectQuery(sql(bookRatingsSQL)).WithArgs(bookID).WillReturnRows(rows)
	mock.ExpectExec(sql(setAvgRatingSQL)).
		WithArgs(bookID, avg).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
}

// ─── Review ─────────────────────────────────────────────────────────────────

var reviewCols = []string{
	"id", "user_id", "book_id", "rating", "description", "is_spoiler",
	"start_date", "end_date", "likes", "created_at", "updated_at",
}

func sampleReview() domain.Review {
	return domain.Review{
		ID:          "review-1",
		UserID:      "user-1",
		BookID:      "book-1",
		Rating:      4,
		Description: "Great world building",
		Likes:       []string{"user-2"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func reviewRow(r domain.Review) []any {
	return []any{
		r.ID, r.UserID, r.BookID, r.Rating, r.Description, r.IsSpoiler,
		r.StartDate, r.EndDate, r.Likes, r.CreatedAt, r.UpdatedAt,
	}
}

// ─── Change request ─────────────────────────────────────────────────────────

var changeRequestCols = []string{
	"id", "requester_id", "kind", "target_book_id", "payload", "status",
	"submitted_at", "decided_by", "decided_at", "applied_book_id",
}

func samplePayload() domain.BookPayload {
	return domain.BookPayload{
		Title:       "Dune Messiah",
		AuthorID:    "author-1",
		Genres:      []string{"sci-fi"},
		Pages:       256,
		PublisherID: "pub-1",
	}
}

func sampleChangeRequest(kind string) domain.ChangeRequest {
	cr := domain.ChangeRequest{
		ID:          "cr-1",
		RequesterID: "user-1",
		Kind:        kind,
		Payload:     samplePayload(),
		Status:      domain.ChangeStatusPending,
		SubmittedAt: now,
	}
	if kind == domain.ChangeKindUpdate {
		cr.TargetBookID = strPtr("book-1")
	}
	return cr
}

func changeRequestRow(cr domain.ChangeRequest) []any {
	payload := []byte(`{"title":"` + cr.Payload.Title + `","authorId":"author-1","genres":["sci-fi"],"pages":256,"publisherId":"pub-1"}`)
	return []any{
		cr.ID, cr.RequesterID, cr.Kind, cr.TargetBookID, payload, cr.Status,
		cr.SubmittedAt, cr.DecidedBy, cr.DecidedAt, cr.AppliedBookID,
	}
}
