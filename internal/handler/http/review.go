package http

import (
	"log/slog"
	"net/http"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/service"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/httputil"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/middleware"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/pagination"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/validator"
)

var reviewPageSpec = pagination.Spec{
	PageParam:   "page",
	SizeParam:   "pageSize",
	DefaultSize: domain.DefaultReviewPageSize,
	MaxSize:     domain.MaxReviewPageSize,
}

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// SubmitReviewRequest is the JSON body for creating or updating the caller's
// review. Omitted fields keep their stored values on update.
type SubmitReviewRequest struct {
	Rating      *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
	IsSpoiler   *bool   `json:"isSpoiler"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
}

// ListReviews handles GET /api/v1/books/{bookID}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathUUID(r, "bookID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	params, err := pagination.Parse(r.URL.Query(), reviewPageSpec)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	rating, err := queryInt(r, "rating")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	page, err := h.service.ListReviews(r.Context(), domain.ReviewQuery{
		BookID:   bookID,
		Page:     params.Page,
		PageSize: params.PerPage,
		Rating:   rating,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, page)
}

// GetMyReview handles GET /api/v1/books/{bookID}/reviews/me. A caller
// without a review gets an empty object.
func (h *ReviewHandler) GetMyReview(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathUUID(r, "bookID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.GetUserReview(r.Context(), middleware.UserIDFromContext(r.Context()), bookID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if review == nil {
		httputil.WriteData(w, http.StatusOK, struct{}{})
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// SubmitReview handles POST /api/v1/books/{bookID}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	bookID, err := pathUUID(r, "bookID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req SubmitReviewRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.SubmitReview(r.Context(), service.SubmitReviewInput{
		UserID:      middleware.UserIDFromContext(r.Context()),
		BookID:      bookID,
		Rating:      req.Rating,
		Description: req.Description,
		IsSpoiler:   req.IsSpoiler,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// GetReview handles GET /api/v1/reviews/{reviewID}
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	review, err := h.service.GetReview(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, review)
}

// DeleteReview handles DELETE /api/v1/reviews/{reviewID}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	ctx := r.Context()
	if err := h.service.DeleteReview(ctx, id, middleware.UserIDFromContext(ctx), middleware.IsAdmin(ctx)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleLike handles POST /api/v1/reviews/{reviewID}/like
func (h *ReviewHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "reviewID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	state, err := h.service.ToggleLike(r.Context(), id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, state)
}
