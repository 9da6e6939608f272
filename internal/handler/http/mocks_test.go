package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/auth"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/service"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/health"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/middleware"
)

// =============================================================================
// Service mocks
// =============================================================================

type mockReviewService struct{ mock.Mock }

func (m *mockReviewService) SubmitReview(ctx context.Context, input service.SubmitReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) GetUserReview(ctx context.Context, userID, bookID string) (*domain.Review, error) {
	args := m.Called(ctx, userID, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewService) DeleteReview(ctx context.Context, id, callerID string, isAdmin bool) error {
	return m.Called(ctx, id, callerID, isAdmin).Error(0)
}

func (m *mockReviewService) ToggleLike(ctx context.Context, reviewID, userID string) (domain.LikeState, error) {
	args := m.Called(ctx, reviewID, userID)
	return args.Get(0).(domain.LikeState), args.Error(1)
}

func (m *mockReviewService) ListReviews(ctx context.Context, q domain.ReviewQuery) (*domain.ReviewPage, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewPage), args.Error(1)
}

type mockBookService struct{ mock.Mock }

func (m *mockBookService) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBookService) RecomputeRating(ctx context.Context, id string) (float64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(float64), args.Error(1)
}

type mockChangeRequestService struct{ mock.Mock }

func (m *mockChangeRequestService) Submit(ctx context.Context, input service.SubmitChangeRequestInput) (*domain.ChangeRequest, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChangeRequest), args.Error(1)
}

func (m *mockChangeRequestService) ListPending(ctx context.Context) ([]domain.ChangeRequest, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]domain.ChangeRequest)
	return list, args.Error(1)
}

func (m *mockChangeRequestService) ListMine(ctx context.Context, requesterID string) ([]domain.ChangeRequest, error) {
	args := m.Called(ctx, requesterID)
	list, _ := args.Get(0).([]domain.ChangeRequest)
	return list, args.Error(1)
}

func (m *mockChangeRequestService) Get(ctx context.Context, id, callerID string, isAdmin bool) (*domain.ChangeRequest, error) {
	args := m.Called(ctx, id, callerID, isAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChangeRequest), args.Error(1)
}

func (m *mockChangeRequestService) Approve(ctx context.Context, id, adminID string) (*domain.ChangeRequest, *domain.Book, error) {
	args := m.Called(ctx, id, adminID)
	cr, _ := args.Get(0).(*domain.ChangeRequest)
	book, _ := args.Get(1).(*domain.Book)
	return cr, book, args.Error(2)
}

func (m *mockChangeRequestService) Reject(ctx context.Context, id, adminID string) (*domain.ChangeRequest, error) {
	args := m.Called(ctx, id, adminID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChangeRequest), args.Error(1)
}

type mockNotificationService struct{ mock.Mock }

func (m *mockNotificationService) List(ctx context.Context, userID string, page, perPage int) ([]domain.Notification, int, error) {
	args := m.Called(ctx, userID, page, perPage)
	list, _ := args.Get(0).([]domain.Notification)
	return list, args.Int(1), args.Error(2)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Notification), args.Error(1)
}

// =============================================================================
// Test harness
// =============================================================================

const (
	userID  = "11111111-1111-1111-1111-111111111111"
	adminID = "22222222-2222-2222-2222-222222222222"
	bookID  = "33333333-3333-3333-3333-333333333333"
	otherID = "44444444-4444-4444-4444-444444444444"
)

type testServer struct {
	reviews       *mockReviewService
	books         *mockBookService
	changes       *mockChangeRequestService
	notifications *mockNotificationService
	tokens        *auth.JWTManager
	handler       http.Handler
}

func newTestServer(t *testing.T, limit middleware.RateLimitConfig) *testServer {
	t.Helper()
	if limit.RPS == 0 {
		limit = middleware.RateLimitConfig{RPS: 1000, Burst: 1000, TTL: time.Minute}
	}
	ts := &testServer{
		reviews:       &mockReviewService{},
		books:         &mockBookService{},
		changes:       &mockChangeRequestService{},
		notifications: &mockNotificationService{},
		tokens:        auth.NewJWTManager("test-secret-0123456789", "catalog-test", time.Hour),
	}
	ts.handler = NewRouter(RouterConfig{
		ServiceName:    "catalog-test",
		Reviews:        ts.reviews,
		Books:          ts.books,
		ChangeRequests: ts.changes,
		Notifications:  ts.notifications,
		Health:         health.NewHandler(),
		Tokens:         ts.tokens.Validator(),
		RateLimit:      limit,
		RequestTimeout: 5 * time.Second,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(func() {
		ts.reviews.AssertExpectations(t)
		ts.books.AssertExpectations(t)
		ts.changes.AssertExpectations(t)
		ts.notifications.AssertExpectations(t)
	})
	return ts
}

func (ts *testServer) token(t *testing.T, id, role string) string {
	t.Helper()
	tok, err := ts.tokens.GenerateAccessToken(id, role)
	require.NoError(t, err)
	return tok
}

// do sends a request; token may be empty for anonymous calls.
func (ts *testServer) do(method, path, token, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}
