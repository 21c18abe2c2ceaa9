package authz

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/roles"
	"github.com/zarforum/zarforum/internal/shared"
)

type mockRepo struct {
	grants    []Grant
	userRoles map[uuid.UUID]roles.Role
	entries   []audit.Entry

	listErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{userRoles: make(map[uuid.UUID]roles.Role)}
}

func (m *mockRepo) ListGrants(ctx context.Context) ([]Grant, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]Grant, len(m.grants))
	copy(out, m.grants)
	return out, nil
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTxRepo{repo: m})
}

type mockTxRepo struct {
	repo *mockRepo
}

func (m *mockTxRepo) InsertGrant(ctx context.Context, role roles.Role, permission string) error {
	for _, g := range m.repo.grants {
		if g.Role == role && g.Permission == permission {
			return nil
		}
	}
	m.repo.grants = append(m.repo.grants, Grant{Role: role, Permission: permission})
	return nil
}

func (m *mockTxRepo) DeleteGrant(ctx context.Context, role roles.Role, permission string) (int64, error) {
	for i, g := range m.repo.grants {
		if g.Role == role && g.Permission == permission {
			m.repo.grants = append(m.repo.grants[:i], m.repo.grants[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (m *mockTxRepo) UpdateUserRole(ctx context.Context, userID uuid.UUID, role roles.Role) (int64, error) {
	if _, ok := m.repo.userRoles[userID]; !ok {
		return 0, nil
	}
	m.repo.userRoles[userID] = role
	return 1, nil
}

func (m *mockTxRepo) RecordAudit(ctx context.Context, e audit.Entry) error {
	m.repo.entries = append(m.repo.entries, e)
	return nil
}

func adminActor() shared.Actor {
	return shared.Actor{ID: uuid.New(), Role: roles.Admin}
}

func TestCanReflectsGrantMatrix(t *testing.T) {
	repo := newMockRepo()
	repo.grants = []Grant{
		{Role: roles.Kapitan, Permission: PermDeleteThreads},
		{Role: roles.Trener, Permission: PermManageTransfers},
	}
	svc := NewService(repo)
	ctx := context.Background()

	for _, role := range roles.All() {
		for _, perm := range Permissions() {
			actor := shared.Actor{ID: uuid.New(), Role: role}
			granted := false
			for _, g := range repo.grants {
				if g.Role == role && g.Permission == perm {
					granted = true
				}
			}
			ok, err := svc.Can(ctx, actor, perm)
			require.NoError(t, err)
			assert.Equal(t, granted, ok, "role=%s perm=%s", role, perm)
		}
	}
}

func TestBannedActorDeniedDespiteGrant(t *testing.T) {
	repo := newMockRepo()
	repo.grants = []Grant{{Role: roles.Admin, Permission: PermDeleteThreads}}
	svc := NewService(repo)

	actor := shared.Actor{ID: uuid.New(), Role: roles.Admin, Banned: true}
	ok, err := svc.Can(context.Background(), actor, PermDeleteThreads)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, svc.Require(context.Background(), actor, PermDeleteThreads), shared.ErrPermissionDenied)
}

func TestGrantCheckRevokeRoundTrip(t *testing.T) {
	repo := newMockRepo()
	repo.grants = []Grant{{Role: roles.Admin, Permission: PermManageRoles}}
	svc := NewService(repo)
	ctx := context.Background()
	admin := adminActor()
	trener := shared.Actor{ID: uuid.New(), Role: roles.Trener}

	ok, err := svc.Can(ctx, trener, PermDeleteThreads)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, svc.Grant(ctx, admin, roles.Trener, PermDeleteThreads))
	ok, err = svc.Can(ctx, trener, PermDeleteThreads)
	require.NoError(t, err)
	assert.True(t, ok, "permission visible immediately after grant")

	require.NoError(t, svc.Revoke(ctx, admin, roles.Trener, PermDeleteThreads))
	ok, err = svc.Can(ctx, trener, PermDeleteThreads)
	require.NoError(t, err)
	assert.False(t, ok, "permission denied immediately after revoke")

	require.Len(t, repo.entries, 2)
	assert.Equal(t, audit.ActionGrantPermission, repo.entries[0].Action)
	assert.Equal(t, audit.ActionRevokePermission, repo.entries[1].Action)
}

func TestGrantRequiresManageRoles(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	actor := shared.Actor{ID: uuid.New(), Role: roles.Kapitan}

	err := svc.Grant(context.Background(), actor, roles.Trener, PermDeleteThreads)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Empty(t, repo.grants)
	assert.Empty(t, repo.entries)
}

func TestGrantRejectsUnknownPermission(t *testing.T) {
	repo := newMockRepo()
	repo.grants = []Grant{{Role: roles.Admin, Permission: PermManageRoles}}
	svc := NewService(repo)

	err := svc.Grant(context.Background(), adminActor(), roles.Trener, "launch_rockets")
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Empty(t, repo.entries)
}

func TestRevokeMissingGrantIsNotFound(t *testing.T) {
	repo := newMockRepo()
	repo.grants = []Grant{{Role: roles.Admin, Permission: PermManageRoles}}
	svc := NewService(repo)

	err := svc.Revoke(context.Background(), adminActor(), roles.Trener, PermDeleteThreads)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, repo.entries)
}

func TestChangeRoleSelfProtected(t *testing.T) {
	repo := newMockRepo()
	repo.grants = []Grant{{Role: roles.Admin, Permission: PermManageRoles}}
	svc := NewService(repo)
	admin := adminActor()
	repo.userRoles[admin.ID] = roles.Admin

	err := svc.ChangeRole(context.Background(), admin, admin.ID, roles.Zawodnik)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Equal(t, roles.Admin, repo.userRoles[admin.ID])
	assert.Empty(t, repo.entries)
}

func TestChangeRoleAuditsTarget(t *testing.T) {
	repo := newMockRepo()
	repo.grants = []Grant{{Role: roles.Admin, Permission: PermManageRoles}}
	svc := NewService(repo)
	admin := adminActor()
	target := uuid.New()
	repo.userRoles[target] = roles.Zawodnik

	require.NoError(t, svc.ChangeRole(context.Background(), admin, target, roles.Kapitan))
	assert.Equal(t, roles.Kapitan, repo.userRoles[target])
	require.Len(t, repo.entries, 1)
	entry := repo.entries[0]
	assert.Equal(t, audit.ActionChangeRole, entry.Action)
	assert.Equal(t, admin.ID, entry.AdminID)
	require.NotNil(t, entry.TargetID)
	assert.Equal(t, target, *entry.TargetID)
}

func TestChangeRoleUnknownTarget(t *testing.T) {
	repo := newMockRepo()
	repo.grants = []Grant{{Role: roles.Admin, Permission: PermManageRoles}}
	svc := NewService(repo)

	err := svc.ChangeRole(context.Background(), adminActor(), uuid.New(), roles.Kapitan)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, repo.entries)
}
