package authz

import (
	"context"

	"github.com/google/uuid"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/roles"
	"github.com/zarforum/zarforum/internal/shared"
)

// Repository provides access to the role_permissions grant set.
type Repository interface {
	ListGrants(ctx context.Context) ([]Grant, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
}

// TxRepository exposes the grant and role mutations available inside a
// transaction, together with the audit write that must commit with them.
type TxRepository interface {
	InsertGrant(ctx context.Context, role roles.Role, permission string) error
	DeleteGrant(ctx context.Context, role roles.Role, permission string) (int64, error)
	UpdateUserRole(ctx context.Context, userID uuid.UUID, role roles.Role) (int64, error)
	RecordAudit(ctx context.Context, e audit.Entry) error
}

// Service answers authorization questions and manages the dynamic
// role to permission matrix.
type Service struct {
	repo Repository
	idx  *index
}

// NewService constructs a Service backed by the provided repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, idx: newIndex()}
}

// IsBanned reports whether the actor is banned. Banned actors are denied
// every mutating action regardless of granted permissions.
func (s *Service) IsBanned(actor shared.Actor) bool {
	return actor.Banned
}

// Can reports whether the actor holds the permission. Lookups hit the
// in-memory index, not the backing store.
func (s *Service) Can(ctx context.Context, actor shared.Actor, permission string) (bool, error) {
	if actor.Banned {
		return false, nil
	}
	if err := s.ensureIndex(ctx); err != nil {
		return false, err
	}
	return s.idx.has(actor.Role, permission), nil
}

// CanActOn is Can with a target. Acting on yourself with a role or ban
// permission is always denied, independent of the permission matrix, so an
// admin can never strip their own admin role or ban themselves.
func (s *Service) CanActOn(ctx context.Context, actor shared.Actor, permission string, target uuid.UUID) (bool, error) {
	if selfProtected(actor, permission, target) {
		return false, nil
	}
	return s.Can(ctx, actor, permission)
}

// Require returns ErrPermissionDenied unless the actor holds the permission.
func (s *Service) Require(ctx context.Context, actor shared.Actor, permission string) error {
	ok, err := s.Can(ctx, actor, permission)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrPermissionDenied
	}
	return nil
}

// RequireOn is Require with the self-protection rule applied.
func (s *Service) RequireOn(ctx context.Context, actor shared.Actor, permission string, target uuid.UUID) error {
	ok, err := s.CanActOn(ctx, actor, permission, target)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrPermissionDenied
	}
	return nil
}

// Grant adds a (role, permission) pair and writes the audit entry in the
// same transaction. The index is rebuilt once the transaction commits.
func (s *Service) Grant(ctx context.Context, actor shared.Actor, role roles.Role, permission string) error {
	if err := s.Require(ctx, actor, PermManageRoles); err != nil {
		return err
	}
	if !roles.Valid(role) {
		return &shared.ValidationError{Field: "role", Reason: "unknown role"}
	}
	if !KnownPermission(permission) {
		return &shared.ValidationError{Field: "permission", Reason: "unknown permission"}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertGrant(ctx, role, permission); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID: actor.ID,
			Action:  audit.ActionGrantPermission,
			Details: map[string]any{"role": string(role), "permission": permission},
		})
	})
	if err != nil {
		return err
	}
	return s.Rebuild(ctx)
}

// Revoke removes a (role, permission) pair; missing pairs return ErrNotFound
// and leave no audit entry behind.
func (s *Service) Revoke(ctx context.Context, actor shared.Actor, role roles.Role, permission string) error {
	if err := s.Require(ctx, actor, PermManageRoles); err != nil {
		return err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.DeleteGrant(ctx, role, permission)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID: actor.ID,
			Action:  audit.ActionRevokePermission,
			Details: map[string]any{"role": string(role), "permission": permission},
		})
	})
	if err != nil {
		return err
	}
	return s.Rebuild(ctx)
}

// ChangeRole reassigns the target's role. Gated behind manage_roles,
// self-protected, audited as CHANGE_ROLE.
func (s *Service) ChangeRole(ctx context.Context, actor shared.Actor, target uuid.UUID, newRole roles.Role) error {
	if err := s.RequireOn(ctx, actor, PermManageRoles, target); err != nil {
		return err
	}
	if !roles.Valid(newRole) {
		return &shared.ValidationError{Field: "role", Reason: "unknown role"}
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		rows, err := tx.UpdateUserRole(ctx, target, newRole)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.ErrNotFound
		}
		return tx.RecordAudit(ctx, audit.Entry{
			AdminID:  actor.ID,
			Action:   audit.ActionChangeRole,
			TargetID: &target,
			Details:  map[string]any{"new_role": string(newRole)},
		})
	})
}

// Rebuild refreshes the permission index from the backing store.
func (s *Service) Rebuild(ctx context.Context) error {
	grants, err := s.repo.ListGrants(ctx)
	if err != nil {
		return err
	}
	s.idx.replace(grants)
	return nil
}

func (s *Service) ensureIndex(ctx context.Context) error {
	if s.idx.isLoaded() {
		return nil
	}
	return s.Rebuild(ctx)
}

func selfProtected(actor shared.Actor, permission string, target uuid.UUID) bool {
	if actor.ID != target {
		return false
	}
	return permission == PermManageRoles || permission == PermBanUsers
}
