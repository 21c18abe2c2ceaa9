package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/shared"
)

// RequireActor pulls the resolved actor off the request context, answering
// 401 itself when no one is logged in.
func RequireActor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		Problem(w, http.StatusUnauthorized, "Authentication Required", "login required")
	}
	return actor, ok
}

// URLParamUUID parses a chi URL parameter as a UUID, answering 400 itself
// on malformed input.
func URLParamUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
