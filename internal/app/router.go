package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/auth"
	"github.com/zarforum/zarforum/internal/authz"
	"github.com/zarforum/zarforum/internal/forum"
	"github.com/zarforum/zarforum/internal/observability"
	"github.com/zarforum/zarforum/internal/profile"
	"github.com/zarforum/zarforum/internal/shared"
	"github.com/zarforum/zarforum/internal/transfers"
	"github.com/zarforum/zarforum/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	Actors         ActorResolver
	Metrics        *observability.Metrics

	AuthHandler      *auth.Handler
	AuthzHandler     *authz.Handler
	AuditHandler     *audit.Handler
	ProfileHandler   *profile.Handler
	ForumHandler     *forum.Handler
	TransfersHandler *transfers.Handler
	JobsHandler      *jobs.Handler
}

// NewRouter constructs the chi.Router with zarforum defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Actors:         params.Actors,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/admin", func(r chi.Router) {
		params.AuthzHandler.MountRoutes(r)
		r.Route("/audit", params.AuditHandler.MountRoutes)
	})
	params.ProfileHandler.MountRoutes(r)
	params.ForumHandler.MountRoutes(r)
	r.Route("/transfers", params.TransfersHandler.MountRoutes)
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.Config != nil && params.Config.AvatarDir != "" {
		fileServer := http.StripPrefix("/uploads/avatars/", http.FileServer(http.Dir(params.Config.AvatarDir)))
		r.Handle("/uploads/avatars/*", avatarCacheHandler(fileServer))
	}

	return r
}

// avatarCacheHandler wraps the avatar file server with Cache-Control
// headers; avatars change at most every 31 days.
func avatarCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
