package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"feedlink/internal/stats"
	"feedlink/pkg/platform/httputil"
	request "feedlink/pkg/platform/middleware/request"
)

// Service produces the dashboard summaries.
type Service interface {
	Summary(ctx context.Context) (*stats.Summary, error)
	AdminSummary(ctx context.Context) (*stats.AdminSummary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger}
}

// RegisterPublic mounts the public landing-page counters.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/api/donations/stats", h.HandleSummary)
}

// RegisterAdmin mounts the admin dashboard counters.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/api/admin/stats", h.HandleAdminSummary)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sum, err := h.service.Summary(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build donation stats",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}

func (h *Handler) HandleAdminSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sum, err := h.service.AdminSummary(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to build admin stats",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sum)
}
