package service

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/repository"
	apperrors "github.com/TanaseDoru/BookReviewSite-sub000/pkg/errors"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// steppingClock returns a time one second later on every call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// --- In-memory review store ---

// memReviewRepo mirrors the postgres repository's transactional behaviour:
// a failed mutation leaves no trace and every review write recomputes the
// book's rating.
type memReviewRepo struct {
	mu      sync.Mutex
	books   map[string]*domain.Book
	reviews map[string]*domain.Review
	seq     map[string]int
	next    int
}

var _ repository.ReviewRepository = (*memReviewRepo)(nil)

func newMemReviewRepo(bookIDs ...string) *memReviewRepo {
	r := &memReviewRepo{
		books:   map[string]*domain.Book{},
		reviews: map[string]*domain.Review{},
		seq:     map[string]int{},
	}
	for _, id := range bookIDs {
		r.books[id] = &domain.Book{ID: id}
	}
	return r
}

func (r *memReviewRepo) avg(bookID string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.books[bookID].AvgRating
}

func cloneReview(rv *domain.Review) *domain.Review {
	c := *rv
	c.Likes = append([]string{}, rv.Likes...)
	return &c
}

func (r *memReviewRepo) recompute(bookID string) {
	var ratings []int
	for _, rv := range r.reviews {
		if rv.BookID == bookID {
			ratings = append(ratings, rv.Rating)
		}
	}
	r.books[bookID].AvgRating = domain.AverageRating(ratings)
}

func (r *memReviewRepo) Upsert(_ context.Context, userID, bookID string, fn repository.ReviewMutator) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[bookID]; !ok {
		return nil, apperrors.NotFound("book", bookID)
	}
	var existing *domain.Review
	for _, rv := range r.reviews {
		if rv.UserID == userID && rv.BookID == bookID {
			existing = cloneReview(rv)
		}
	}
	next, err := fn(existing)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		r.next++
		r.seq[next.ID] = r.next
	}
	r.reviews[next.ID] = cloneReview(next)
	r.recompute(bookID)
	return next, nil
}

func (r *memReviewRepo) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	return cloneReview(rv), nil
}

func (r *memReviewRepo) GetByUserAndBook(_ context.Context, userID, bookID string) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range r.reviews {
		if rv.UserID == userID && rv.BookID == bookID {
			return cloneReview(rv), nil
		}
	}
	return nil, apperrors.NotFound("review", bookID)
}

func (r *memReviewRepo) Delete(_ context.Context, id string, authorize func(*domain.Review) error) (*domain.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	if err := authorize(rv); err != nil {
		return nil, err
	}
	delete(r.reviews, id)
	r.recompute(rv.BookID)
	return rv, nil
}

func (r *memReviewRepo) ToggleLike(_ context.Context, reviewID, userID string) (domain.LikeState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.reviews[reviewID]
	if !ok {
		return domain.LikeState{}, apperrors.NotFound("review", reviewID)
	}
	for i, id := range rv.Likes {
		if id == userID {
			rv.Likes = append(rv.Likes[:i], rv.Likes[i+1:]...)
			return domain.LikeState{Likes: len(rv.Likes), HasLiked: false}, nil
		}
	}
	rv.Likes = append(rv.Likes, userID)
	return domain.LikeState{Likes: len(rv.Likes), HasLiked: true}, nil
}

func (r *memReviewRepo) List(_ context.Context, q domain.ReviewQuery) (*domain.ReviewPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	dist := domain.NewRatingDistribution()
	var matched []domain.Review
	for _, rv := range r.reviews {
		if rv.BookID != q.BookID {
			continue
		}
		dist[rv.Rating]++
		if q.Rating != nil && rv.Rating != *q.Rating {
			continue
		}
		matched = append(matched, *cloneReview(rv))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return r.seq[matched[i].ID] > r.seq[matched[j].ID]
	})

	total := len(matched)
	start := min(q.Offset(), total)
	end := min(start+q.PageSize, total)
	return domain.NewReviewPage(q, matched[start:end], total, dist), nil
}

// --- Mock Repositories ---

type mockBookRepository struct {
	mock.Mock
}

func (m *mockBookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBookRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookRepository) RecomputeRating(ctx context.Context, id string) (float64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(float64), args.Error(1)
}

type mockChangeRequestRepository struct {
	mock.Mock
}

func (m *mockChangeRequestRepository) Create(ctx context.Context, cr *domain.ChangeRequest) error {
	return m.Called(ctx, cr).Error(0)
}

func (m *mockChangeRequestRepository) GetByID(ctx context.Context, id string) (*domain.ChangeRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChangeRequest), args.Error(1)
}

func (m *mockChangeRequestRepository) ListByStatus(ctx context.Context, status string) ([]domain.ChangeRequest, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.ChangeRequest), args.Error(1)
}

func (m *mockChangeRequestRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.ChangeRequest, error) {
	args := m.Called(ctx, requesterID)
	return args.Get(0).([]domain.ChangeRequest), args.Error(1)
}

func (m *mockChangeRequestRepository) Approve(ctx context.Context, id, adminID, newBookID string, now time.Time) (*domain.ChangeRequest, *domain.Book, error) {
	args := m.Called(ctx, id, adminID, newBookID, now)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.ChangeRequest), args.Get(1).(*domain.Book), args.Error(2)
}

func (m *mockChangeRequestRepository) Reject(ctx context.Context, id, adminID string, now time.Time) (*domain.ChangeRequest, error) {
	args := m.Called(ctx, id, adminID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChangeRequest), args.Error(1)
}

type mockNotificationRepository struct {
	mock.Mock
}

func (m *mockNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

func (m *mockNotificationRepository) ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, page, perPage)
	return args.Get(0).([]domain.Notification), args.Int(1), args.Error(2)
}

func (m *mockNotificationRepository) MarkRead(ctx context.Context, id, userID string, now time.Time) (*domain.Notification, error) {
	args := m.Called(ctx, id, userID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

// --- Mock event sinks ---

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishReviewSubmitted(ctx context.Context, review *domain.Review, created bool) error {
	return m.Called(ctx, review, created).Error(0)
}

func (m *mockEvents) PublishReviewDeleted(ctx context.Context, review *domain.Review) error {
	return m.Called(ctx, review).Error(0)
}

func (m *mockEvents) PublishChangeRequestSubmitted(ctx context.Context, cr *domain.ChangeRequest) error {
	return m.Called(ctx, cr).Error(0)
}

func (m *mockEvents) PublishChangeRequestDecided(ctx context.Context, cr *domain.ChangeRequest) error {
	return m.Called(ctx, cr).Error(0)
}

func (m *mockEvents) Record(ctx context.Context, userID, kind, details string) error {
	return m.Called(ctx, userID, kind, details).Error(0)
}

// quietEvents accepts every publish and notification.
func quietEvents() *mockEvents {
	m := new(mockEvents)
	m.On("PublishReviewSubmitted", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("PublishReviewDeleted", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("PublishChangeRequestSubmitted", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("PublishChangeRequestDecided", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}
