package profile

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zarforum/zarforum/internal/platform/httpx"
	"github.com/zarforum/zarforum/internal/shared"
)

// Handler wires HTTP endpoints for profile reads, self-service changes and
// the admin-side operations.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers profile routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profiles", h.list)
	r.Get("/profiles/{id}", h.get)
	r.Put("/profiles/{id}", h.adminEdit)
	r.Put("/profiles/{id}/ban", h.setBanned)

	r.Get("/me", h.me)
	r.Get("/me/cooldowns/{field}", h.cooldown)
	r.Put("/me/email", h.changeEmail)
	r.Put("/me/description", h.updateDescription)
	r.Put("/me/avatar", h.changeAvatar)
}

type profileResponse struct {
	UserID      string     `json:"user_id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	Description string     `json:"description"`
	AvatarURL   *string    `json:"avatar_url,omitempty"`
	Banned      bool       `json:"banned"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastEmail   *time.Time `json:"last_email_change,omitempty"`
	LastAvatar  *time.Time `json:"last_avatar_change,omitempty"`
}

func toResponse(p *Profile, includePrivate bool) profileResponse {
	resp := profileResponse{
		UserID:      p.UserID.String(),
		Username:    p.Username,
		Description: p.Description,
		AvatarURL:   p.AvatarURL,
		Banned:      p.Banned,
		Role:        string(p.Role),
		CreatedAt:   p.CreatedAt,
	}
	if includePrivate {
		resp.Email = p.Email
		resp.LastEmail = p.LastEmailChange
		resp.LastAvatar = p.LastAvatarChange
	}
	return resp
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list profiles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]profileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, toResponse(&profiles[i], false))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"profiles": out})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p, false))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), actor.ID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p, true))
}

func (h *Handler) cooldown(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	field := Field(chi.URLParam(r, "field"))
	if field != FieldEmail && field != FieldAvatar {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown field")
		return
	}
	allowed, days, err := h.service.CanMutate(r.Context(), actor.ID, field)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"field":          string(field),
		"allowed":        allowed,
		"days_remaining": days,
	})
}

type changeEmailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) changeEmail(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	var req changeEmailRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.ChangeEmail(r.Context(), actor, req.Email); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type updateDescriptionRequest struct {
	Description string `json:"description"`
}

func (h *Handler) updateDescription(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	var req updateDescriptionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.UpdateDescription(r.Context(), actor, req.Description); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changeAvatar(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	// One extra byte so an oversized upload is detected rather than truncated.
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarBytes+1)
	if err := r.ParseMultipartForm(maxAvatarBytes + 1); err != nil {
		httpx.RespondError(w, &shared.ValidationError{Field: "avatar", Reason: "file exceeds 2MB"})
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "avatar file missing")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unreadable avatar file")
		return
	}

	url, err := h.service.ChangeAvatar(r.Context(), actor, header.Filename, data)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"avatar_url": url})
}

type adminEditRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Description string `json:"description"`
}

func (h *Handler) adminEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	target, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	var req adminEditRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.AdminEdit(r.Context(), actor, target, req.Username, req.Email, req.Description); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setBannedRequest struct {
	Banned bool `json:"banned"`
}

func (h *Handler) setBanned(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	target, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	var req setBannedRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.SetBanned(r.Context(), actor, target, req.Banned); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("ban flag updated",
		slog.String("target", target.String()),
		slog.Bool("banned", req.Banned),
		slog.String("actor", actor.ID.String()))
	w.WriteHeader(http.StatusNoContent)
}
