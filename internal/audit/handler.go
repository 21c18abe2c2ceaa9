package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zarforum/zarforum/internal/platform/httpx"
	"github.com/zarforum/zarforum/internal/roles"
	"github.com/zarforum/zarforum/internal/shared"
)

// Handler serves the audit log to the admin panel.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

type entryResponse struct {
	ID        string         `json:"id"`
	AdminID   string         `json:"admin_id"`
	Action    string         `json:"action"`
	TargetID  *string        `json:"target_id,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// The log is admin-panel only; holding individual permissions is not enough
// to read it.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	if actor.Role != roles.Admin {
		httpx.RespondError(w, shared.ErrPermissionDenied)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	entries, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("list audit entries", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		resp := entryResponse{
			ID:        e.ID.String(),
			AdminID:   e.AdminID.String(),
			Action:    e.Action,
			Details:   e.Details,
			CreatedAt: e.CreatedAt,
		}
		if e.TargetID != nil {
			target := e.TargetID.String()
			resp.TargetID = &target
		}
		out = append(out, resp)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out})
}
