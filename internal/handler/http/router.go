package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/health"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/middleware"
)

// RouterConfig carries the router's collaborators.
type RouterConfig struct {
	ServiceName    string
	Reviews        ReviewService
	Books          BookService
	ChangeRequests ChangeRequestService
	Notifications  NotificationService
	Health         *health.Handler
	Tokens         middleware.TokenValidator
	RateLimit      middleware.RateLimitConfig
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health/live", cfg.Health.Liveness)
	r.Get("/health/ready", cfg.Health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	books := NewBookHandler(cfg.Books, logger)
	reviews := NewReviewHandler(cfg.Reviews, logger)
	changes := NewChangeRequestHandler(cfg.ChangeRequests, logger)
	notifications := NewNotificationHandler(cfg.Notifications, logger)

	authenticate := middleware.Auth(cfg.Tokens)
	// One bucket per caller shared by every write route.
	limit := middleware.RateLimit(cfg.RateLimit, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public reads
		r.Get("/books/{bookID}", books.GetBook)
		r.Get("/books/{bookID}/reviews", reviews.ListReviews)
		r.Get("/reviews/{reviewID}", reviews.GetReview)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/books/{bookID}/reviews/me", reviews.GetMyReview)
			r.With(limit).Post("/books/{bookID}/reviews", reviews.SubmitReview)
			r.Delete("/reviews/{reviewID}", reviews.DeleteReview)
			r.With(limit).Post("/reviews/{reviewID}/like", reviews.ToggleLike)

			r.With(limit).Post("/change-requests", changes.Submit)
			r.Get("/change-requests/mine", changes.ListMine)
			r.Get("/change-requests/{requestID}", changes.Get)

			r.Get("/notifications", notifications.List)
			r.Post("/notifications/{notificationID}/read", notifications.MarkRead)

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(middleware.RoleAdmin))

				r.Get("/change-requests", changes.ListPending)
				r.Post("/change-requests/{requestID}/approve", changes.Approve)
				r.Post("/change-requests/{requestID}/reject", changes.Reject)
				r.Post("/books/{bookID}/recompute-rating", books.RecomputeRating)
			})
		})
	})

	return r
}
