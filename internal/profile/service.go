package profile

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/authz"
	"github.com/zarforum/zarforum/internal/shared"
)

// Avatar uploads above this size are rejected at the boundary.
const maxAvatarBytes = 2 << 20

var validate = validator.New()

// Repository defines data access for profiles.
type Repository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error)
	List(ctx context.Context) ([]Profile, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository exposes profile mutations inside a transaction. The cooldown
// timestamp moves together with the field value; both land or neither does.
type TxRepository interface {
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*Profile, error)
	UpdateEmail(ctx context.Context, userID uuid.UUID, email string, changedAt time.Time) error
	UpdateAvatar(ctx context.Context, userID uuid.UUID, url string, changedAt time.Time) error
	UpdateDescription(ctx context.Context, userID uuid.UUID, description string) error
	UpdateProfile(ctx context.Context, userID uuid.UUID, username, email, description string) (int64, error)
	SetBanned(ctx context.Context, userID uuid.UUID, banned bool) (int64, error)
	RecordAudit(ctx context.Context, e audit.Entry) error
}

// Authorizer answers permission questions; satisfied by *authz.Service.
type Authorizer interface {
	Require(ctx context.Context, actor shared.Actor, permission string) error
	RequireOn(ctx context.Context, actor shared.Actor, permission string, target uuid.UUID) error
}

// Service handles profile business logic.
type Service struct {
	repo  Repository
	authz Authorizer
	blobs BlobStore
	now   func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, authorizer Authorizer, blobs BlobStore) *Service {
	return &Service{repo: repo, authz: authorizer, blobs: blobs, now: time.Now}
}

// Get returns one profile.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// List returns every profile, for the admin panel.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.repo.List(ctx)
}

// Actor resolves a user id into the actor value threaded through service
// calls. Role and ban state come from the authoritative rows, never from
// the client.
func (s *Service) Actor(ctx context.Context, userID uuid.UUID) (shared.Actor, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return shared.Actor{}, err
	}
	return shared.Actor{ID: p.UserID, Role: p.Role, Banned: p.Banned}, nil
}

// CanMutate reports whether the field may change now and the whole days
// remaining otherwise.
func (s *Service) CanMutate(ctx context.Context, userID uuid.UUID, field Field) (bool, int, error) {
	p, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	allowed, days := CanMutate(p.lastChange(field), s.now())
	return allowed, days, nil
}

// ChangeEmail updates the actor's own email. The cooldown is re-evaluated
// against the row read inside the transaction, so concurrent attempts
// cannot both slip through a stale check.
func (s *Service) ChangeEmail(ctx context.Context, actor shared.Actor, email string) error {
	if actor.Banned {
		return shared.ErrPermissionDenied
	}
	email = strings.TrimSpace(email)
	if err := validate.Var(email, "required,email"); err != nil {
		return &shared.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, actor.ID)
		if err != nil {
			return err
		}
		now := s.now()
		if allowed, days := CanMutate(p.LastEmailChange, now); !allowed {
			return &shared.CooldownError{Field: string(FieldEmail), DaysRemaining: days}
		}
		return tx.UpdateEmail(ctx, actor.ID, email, now)
	})
}

// ChangeAvatar uploads a new avatar and stores the returned public URL. The
// upload happens before the transaction; the cooldown is still re-checked at
// write time, so a racing change leaves the counter untouched.
func (s *Service) ChangeAvatar(ctx context.Context, actor shared.Actor, filename string, data []byte) (string, error) {
	if actor.Banned {
		return "", shared.ErrPermissionDenied
	}
	if len(data) == 0 {
		return "", &shared.ValidationError{Field: "avatar", Reason: "empty file"}
	}
	if len(data) > maxAvatarBytes {
		return "", &shared.ValidationError{Field: "avatar", Reason: "file exceeds 2MB"}
	}

	p, err := s.repo.GetByUserID(ctx, actor.ID)
	if err != nil {
		return "", err
	}
	if allowed, days := CanMutate(p.LastAvatarChange, s.now()); !allowed {
		return "", &shared.CooldownError{Field: string(FieldAvatar), DaysRemaining: days}
	}

	key := fmt.Sprintf("%s/avatar%s", actor.ID, strings.ToLower(path.Ext(filename)))
	url, err := s.blobs.Upload(ctx, key, data)
	if err != nil {
		return "", fmt.Errorf("profile: upload avatar: %w", err)
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		fresh, err := tx.GetForUpdate(ctx, actor.ID)
		if err != nil {
			return err
		}
		now := s.now()
		if allowed, days := CanMutate(fresh.LastAvatarChange, now); !allowed {
			return &shared.CooldownError{Field: string(FieldAvatar), DaysRemaining: days}
		}
		return tx.UpdateAvatar(ctx, actor.ID, url, now)
	})
	if err != nil {
		return "", err
	}
	return url, nil
}

// UpdateDescription updates the actor's own description; no cooldown applies.
func (s *Service) UpdateDescription(ctx context.Context, actor shared.Actor, description string) error {
	if actor.Banned {
		return shared.ErrPermissionDenied
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetForUpdate(ctx, actor.ID); err != nil {
			return err
		}
		return tx.UpdateDescription(ctx, actor.ID, description)
	})
}

// AdminEdit lets a holder of edit_any_profile rewrite another member's
// profile fields; audited as EDIT_PROFILE.
func (s *Service) AdminEdit(ctx context.Context, actor shared.Actor, target uuid.UUID, username, email, description string) error {
	if err := s.authz.Require(ctx, actor, authz.PermEditAnyProfile); err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return &shared.ValidationError{Field: "username", Reason: "required"}
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return &shared.ValidationError{Field: "email", Reason: "must be a valid email address"}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.UpdateProfile(ctx, target, username, email, description)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID:  actor.ID,
			Action:   audit.ActionEditProfile,
			TargetID: &target,
			Details:  map[string]any{"username": username},
		})
	})
}

// SetBanned toggles the target's ban flag. Gated behind ban_users and
// refused when the target is the acting admin themselves.
func (s *Service) SetBanned(ctx context.Context, actor shared.Actor, target uuid.UUID, banned bool) error {
	if err := s.authz.RequireOn(ctx, actor, authz.PermBanUsers, target); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.SetBanned(ctx, target, banned)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		action := audit.ActionBanUser
		if !banned {
			action = audit.ActionUnbanUser
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID:  actor.ID,
			Action:   action,
			TargetID: &target,
		})
	})
}
