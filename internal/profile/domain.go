// Package profile owns member profiles: self-service updates guarded by
// field cooldowns, admin edits, and the ban flag.
package profile

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/roles"
)

// Profile is one member profile row joined with its role assignment.
type Profile struct {
	UserID           uuid.UUID
	Username         string
	Email            string
	Description      string
	AvatarURL        *string
	Banned           bool
	LastEmailChange  *time.Time
	LastAvatarChange *time.Time
	CreatedAt        time.Time
	Role             roles.Role
}

// BlobStore uploads avatar images to external storage. The core persists
// only the returned public URL, never raw bytes.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte) (string, error)
}
