package http

import (
	"log/slog"
	"net/http"

	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/httputil"
)

// BookHandler handles HTTP requests for book endpoints.
type BookHandler struct {
	service BookService
	logger  *slog.Logger
}

// NewBookHandler creates a new book HTTP handler.
func NewBookHandler(svc BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{service: svc, logger: logger}
}

type recomputeResponse struct {
	BookID    string  `json:"bookId"`
	AvgRating float64 `json:"avgRating"`
}

// GetBook handles GET /api/v1/books/{bookID}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "bookID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	book, err := h.service.GetBook(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, book)
}

// RecomputeRating handles POST /api/v1/admin/books/{bookID}/recompute-rating
func (h *BookHandler) RecomputeRating(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "bookID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	avg, err := h.service.RecomputeRating(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, recomputeResponse{BookID: id, AvgRating: avg})
}
