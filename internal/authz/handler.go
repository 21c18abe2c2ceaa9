package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zarforum/zarforum/internal/platform/httpx"
	"github.com/zarforum/zarforum/internal/roles"
)

// Handler wires HTTP endpoints for role and permission management.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers authz routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/permissions", h.listPermissions)
	r.Post("/grants", h.createGrant)
	r.Delete("/grants/{role}/{permission}", h.deleteGrant)
	r.Put("/users/{id}/role", h.changeRole)
}

func (h *Handler) listPermissions(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": Permissions()})
}

type grantRequest struct {
	Role       string `json:"role"`
	Permission string `json:"permission"`
}

func (h *Handler) createGrant(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.Grant(r.Context(), actor, roles.Role(req.Role), req.Permission); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("permission granted",
		slog.String("role", req.Role),
		slog.String("permission", req.Permission),
		slog.String("actor", actor.ID.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteGrant(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	role := roles.Role(chi.URLParam(r, "role"))
	permission := chi.URLParam(r, "permission")
	if err := h.service.Revoke(r.Context(), actor, role, permission); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("permission revoked",
		slog.String("role", string(role)),
		slog.String("permission", permission),
		slog.String("actor", actor.ID.String()))
	w.WriteHeader(http.StatusNoContent)
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	target, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	var req changeRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.ChangeRole(r.Context(), actor, target, roles.Role(req.Role)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("role changed",
		slog.String("target", target.String()),
		slog.String("new_role", req.Role),
		slog.String("actor", actor.ID.String()))
	w.WriteHeader(http.StatusNoContent)
}
