package http

import (
	"log/slog"
	"net/http"

	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/httputil"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/middleware"
	"github.com/TanaseDoru/BookReviewSite-sub000/pkg/pagination"
)

var notificationPageSpec = pagination.Spec{
	PageParam:   "page",
	SizeParam:   "per_page",
	DefaultSize: 20,
	MaxSize:     100,
}

// NotificationHandler serves the caller's notifications.
type NotificationHandler struct {
	service NotificationService
	logger  *slog.Logger
}

func NewNotificationHandler(svc NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{service: svc, logger: logger}
}

// List handles GET /api/v1/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	params, err := pagination.Parse(r.URL.Query(), notificationPageSpec)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	items, total, err := h.service.List(r.Context(), middleware.UserIDFromContext(r.Context()), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, httputil.NewPaginatedResponse(items, total, params.Page, params.PerPage))
}

// MarkRead handles POST /api/v1/notifications/{notificationID}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "notificationID")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	n, err := h.service.MarkRead(r.Context(), id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, n)
}
