package shared

import (
	"context"

	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/roles"
)

// Actor is the authenticated identity performing an operation. It is
// resolved once per request from the authoritative profile and role
// records and threaded explicitly through every service call; client
// supplied role or ban flags are never trusted.
type Actor struct {
	ID     uuid.UUID
	Role   roles.Role
	Banned bool
}

type actorContextKey struct{}

// ContextWithActor stores the resolved actor on the context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor resolved for the current request.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
