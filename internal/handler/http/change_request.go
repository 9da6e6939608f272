package http

import (
	"log/slog"
	"net/http"

	"github.com/TanaseDoru/BookReviewSite-sub000/internal/domain"
	"github.com/TanaseDoru/BookReviewSite-sub000/internal/service"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/httputil"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/middleware"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/validator"
)

// ChangeRequestHandler handles HTTP requests for the moderation queue.
type ChangeRequestHandler struct {
	service ChangeRequestService
	logger  *slog.Logger
}

// NewChangeRequestHandler creates a new change request HTTP handler.
func NewChangeRequestHandler(svc ChangeRequestService, logger *slog.Logger) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: svc, logger: logger}
}

// BookPayloadRequest is the candidate book of a change request.
type BookPayloadRequest struct {
	Title       string   `json:"title" validate:"required,max=500"`
	AuthorID    string   `json:"authorId" validate:"required"`
	Genres      []string `json:"genres" validate:"required,min=1,dive,required"`
	Pages       int      `json:"pages" validate:"required,gt=0"`
	Description *string  `json:"description"`
	CoverImage  *string  `json:"coverImage" validate:"omitempty,url"`
	PublisherID string   `json:"publisherId" validate:"required"`
}

// SubmitChangeRequestRequest is the JSON body of POST /api/v1/change-requests.
type SubmitChangeRequestRequest struct {
	Kind         string             `json:"kind" validate:"required,oneof=create update"`
	TargetBookID *string            `json:"targetBookId" validate:"omitempty,uuid"`
	Payload      BookPayloadRequest `json:"payload"`
}

type approveResponse struct {
	ChangeRequest *domain.ChangeRequest `json:"changeRequest"`
	Book          *domain.Book          `json:"book"`
}

// Submit handles POST /api/v1/change-requests
func (h *ChangeRequestHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitChangeRequestRequest
	if err := validator.DecodeAndValidate(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cr, err := h.service.Submit(r.Context(), service.SubmitChangeRequestInput{
		RequesterID:  middleware.UserIDFromContext(r.Context()),
		Kind:         req.Kind,
		TargetBookID: req.TargetBookID,
		Payload: domain.BookPayload{
			Title:       req.Payload.Title,
			AuthorID:    req.Payload.AuthorID,
			Genres:      req.Payload.Genres,
			Pages:       req.Payload.Pages,
			Description: req.Payload.Description,
			CoverImage:  req.Payload.CoverImage,
			PublisherID: req.Payload.PublisherID,
		},
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, cr)
}

// ListMine handles GET /api/v1/change-requests/mine
func (h *ChangeRequestHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListMine(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(list))
}

// Get handles GET /api/v1/change-requests/{requestID}
func (h *ChangeRequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "requestID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	ctx := r.Context()
	cr, err := h.service.Get(ctx, id, middleware.UserIDFromContext(ctx), middleware.IsAdmin(ctx))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cr)
}

// ListPending handles GET /api/v1/admin/change-requests
func (h *ChangeRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPending(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, nonNil(list))
}

// Approve handles POST /api/v1/admin/change-requests/{requestID}/approve
func (h *ChangeRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "requestID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cr, book, err := h.service.Approve(r.Context(), id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, approveResponse{ChangeRequest: cr, Book: book})
}

// Reject handles POST /api/v1/admin/change-requests/{requestID}/reject
func (h *ChangeRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "requestID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cr, err := h.service.Reject(r.Context(), id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cr)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
