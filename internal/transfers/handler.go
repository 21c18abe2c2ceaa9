package transfers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zarforum/zarforum/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the transfer board.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers transfer routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/{id}", h.delete)
}

type transferResponse struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"player_name"`
	Age        int       `json:"age"`
	Position   string    `json:"position"`
	FromClub   string    `json:"from_club"`
	ToClub     string    `json:"to_club"`
	Fee        string    `json:"fee"`
	CreatedAt  time.Time `json:"created_at"`
}

func toResponse(t *Transfer) transferResponse {
	return transferResponse{
		ID:         t.ID.String(),
		PlayerName: t.PlayerName,
		Age:        t.Age,
		Position:   t.Position,
		FromClub:   t.FromClub,
		ToClub:     t.ToClub,
		Fee:        t.Fee,
		CreatedAt:  t.CreatedAt,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list transfers", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]transferResponse, 0, len(transfers))
	for i := range transfers {
		out = append(out, toResponse(&transfers[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transfers": out})
}

type createRequest struct {
	PlayerName string `json:"player_name"`
	Age        int    `json:"age"`
	Position   string `json:"position"`
	FromClub   string `json:"from_club"`
	ToClub     string `json:"to_club"`
	Fee        string `json:"fee"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	transfer, err := h.service.Create(r.Context(), actor, CreateInput{
		PlayerName: req.PlayerName,
		Age:        req.Age,
		Position:   req.Position,
		FromClub:   req.FromClub,
		ToClub:     req.ToClub,
		Fee:        req.Fee,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(transfer))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
