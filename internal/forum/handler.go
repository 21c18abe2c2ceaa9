package forum

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/platform/httpx"
	"github.com/zarforum/zarforum/internal/shared"
)

// Handler wires HTTP endpoints for the board.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers forum routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/categories", h.listCategories)
	r.Post("/categories", h.createCategory)
	r.Delete("/categories/{id}", h.deleteCategory)
	r.Get("/categories/{id}/threads", h.listThreads)
	r.Post("/categories/{id}/threads", h.createThread)

	r.Get("/threads/{id}", h.getThread)
	r.Delete("/threads/{id}", h.deleteThread)
	r.Post("/threads/{id}/pin", h.pin)
	r.Post("/threads/{id}/unpin", h.unpin)
	r.Post("/threads/{id}/lock", h.lock)
	r.Post("/threads/{id}/unlock", h.unlock)
	r.Get("/threads/{id}/posts", h.listPosts)
	r.Post("/threads/{id}/posts", h.createPost)

	r.Delete("/posts/{id}", h.deletePost)
}

type categoryResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	SortOrder   int       `json:"sort_order"`
	CreatedAt   time.Time `json:"created_at"`
}

func toCategoryResponse(c *Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		Icon:        c.Icon,
		SortOrder:   c.SortOrder,
		CreatedAt:   c.CreatedAt,
	}
}

type threadResponse struct {
	ID         string    `json:"id"`
	CategoryID string    `json:"category_id"`
	AuthorID   *string   `json:"author_id,omitempty"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Pinned     bool      `json:"pinned"`
	Locked     bool      `json:"locked"`
	Views      int64     `json:"views"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toThreadResponse(t *Thread) threadResponse {
	resp := threadResponse{
		ID:         t.ID.String(),
		CategoryID: t.CategoryID.String(),
		Title:      t.Title,
		Content:    t.Content,
		Pinned:     t.Pinned,
		Locked:     t.Locked,
		Views:      t.Views,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	if t.AuthorID != nil {
		author := t.AuthorID.String()
		resp.AuthorID = &author
	}
	return resp
}

type postResponse struct {
	ID         string    `json:"id"`
	ThreadID   string    `json:"thread_id"`
	AuthorID   *string   `json:"author_id,omitempty"`
	Content    string    `json:"content"`
	FlameStyle bool      `json:"flame_style"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPostResponse(p *Post) postResponse {
	resp := postResponse{
		ID:         p.ID.String(),
		ThreadID:   p.ThreadID.String(),
		Content:    p.Content,
		FlameStyle: p.FlameStyle,
		CreatedAt:  p.CreatedAt,
	}
	if p.AuthorID != nil {
		author := p.AuthorID.String()
		resp.AuthorID = &author
	}
	return resp
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]categoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, toCategoryResponse(&categories[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"categories": out})
}

type createCategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	var req createCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	category, err := h.service.CreateCategory(r.Context(), actor, req.Name, req.Description, req.Icon)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCategoryResponse(category))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteCategory(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listThreads(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	threads, err := h.service.ListThreads(r.Context(), categoryID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]threadResponse, 0, len(threads))
	for i := range threads {
		out = append(out, toThreadResponse(&threads[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"threads": out})
}

type createThreadRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *Handler) createThread(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	categoryID, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	var req createThreadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	thread, err := h.service.CreateThread(r.Context(), actor, categoryID, req.Title, req.Content)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toThreadResponse(thread))
}

func (h *Handler) getThread(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	thread, err := h.service.GetThread(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.RecordView(r.Context(), h.viewer(r), id); err != nil {
		h.logger.Warn("record view", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, toThreadResponse(thread))
}

// viewer identifies who is looking at a thread for view dedup. Logged-in
// members count once per account, guests once per address.
func (h *Handler) viewer(r *http.Request) string {
	if actor, ok := shared.ActorFromContext(r.Context()); ok {
		return actor.ID.String()
	}
	return r.RemoteAddr
}

func (h *Handler) deleteThread(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteThread(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("thread deleted",
		slog.String("thread", id.String()),
		slog.String("actor", actor.ID.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pin(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Pin)
}

func (h *Handler) unpin(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Unpin)
}

func (h *Handler) lock(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Lock)
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	h.moderate(w, r, h.service.Unlock)
}

func (h *Handler) moderate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor shared.Actor, threadID uuid.UUID) error) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	if err := op(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	threadID, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	posts, err := h.service.ListPosts(r.Context(), threadID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]postResponse, 0, len(posts))
	for i := range posts {
		out = append(out, toPostResponse(&posts[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"posts": out})
}

type createPostRequest struct {
	Text       string   `json:"text"`
	Images     []string `json:"images"`
	FlameStyle bool     `json:"flame_style"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	threadID, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	var req createPostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	post, err := h.service.CreatePost(r.Context(), actor, threadID, req.Text, req.Images, req.FlameStyle)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPostResponse(post))
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.RequireActor(w, r)
	if !ok {
		return
	}
	id, ok := httpx.URLParamUUID(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.DeletePost(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
