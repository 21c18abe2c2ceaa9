package profile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zarforum/zarforum/internal/audit"
	"github.com/zarforum/zarforum/internal/authz"
	"github.com/zarforum/zarforum/internal/roles"
	"github.com/zarforum/zarforum/internal/shared"
)

type mockRepo struct {
	profiles map[uuid.UUID]*Profile
	entries  []audit.Entry
}

func newMockRepo() *mockRepo {
	return &mockRepo{profiles: make(map[uuid.UUID]*Profile)}
}

func (m *mockRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) List(ctx context.Context) ([]Profile, error) {
	var out []Profile
	for _, p := range m.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTxRepo{repo: m})
}

type mockTxRepo struct {
	repo *mockRepo
}

func (m *mockTxRepo) GetForUpdate(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	return m.repo.GetByUserID(ctx, userID)
}

func (m *mockTxRepo) UpdateEmail(ctx context.Context, userID uuid.UUID, email string, changedAt time.Time) error {
	p := m.repo.profiles[userID]
	p.Email = email
	p.LastEmailChange = &changedAt
	return nil
}

func (m *mockTxRepo) UpdateAvatar(ctx context.Context, userID uuid.UUID, url string, changedAt time.Time) error {
	p := m.repo.profiles[userID]
	p.AvatarURL = &url
	p.LastAvatarChange = &changedAt
	return nil
}

func (m *mockTxRepo) UpdateDescription(ctx context.Context, userID uuid.UUID, description string) error {
	m.repo.profiles[userID].Description = description
	return nil
}

func (m *mockTxRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, username, email, description string) (int64, error) {
	p, ok := m.repo.profiles[userID]
	if !ok {
		return 0, nil
	}
	p.Username = username
	p.Email = email
	p.Description = description
	return 1, nil
}

func (m *mockTxRepo) SetBanned(ctx context.Context, userID uuid.UUID, banned bool) (int64, error) {
	p, ok := m.repo.profiles[userID]
	if !ok {
		return 0, nil
	}
	p.Banned = banned
	return 1, nil
}

func (m *mockTxRepo) RecordAudit(ctx context.Context, e audit.Entry) error {
	m.repo.entries = append(m.repo.entries, e)
	return nil
}

type mockAuthorizer struct {
	granted map[string]bool
}

func (m *mockAuthorizer) Require(ctx context.Context, actor shared.Actor, permission string) error {
	if actor.Banned || !m.granted[permission] {
		return shared.ErrPermissionDenied
	}
	return nil
}

func (m *mockAuthorizer) RequireOn(ctx context.Context, actor shared.Actor, permission string, target uuid.UUID) error {
	if actor.ID == target && (permission == authz.PermManageRoles || permission == authz.PermBanUsers) {
		return shared.ErrPermissionDenied
	}
	return m.Require(ctx, actor, permission)
}

type mockBlobStore struct {
	uploads int
	lastKey string
	failErr error
}

func (m *mockBlobStore) Upload(ctx context.Context, key string, data []byte) (string, error) {
	if m.failErr != nil {
		return "", m.failErr
	}
	m.uploads++
	m.lastKey = key
	return "https://cdn.example.com/" + key, nil
}

func newTestService(repo *mockRepo, granted ...string) (*Service, *mockBlobStore) {
	perms := make(map[string]bool, len(granted))
	for _, p := range granted {
		perms[p] = true
	}
	blobs := &mockBlobStore{}
	svc := NewService(repo, &mockAuthorizer{granted: perms}, blobs)
	return svc, blobs
}

func seedProfile(repo *mockRepo, role roles.Role) *Profile {
	p := &Profile{
		UserID:    uuid.New(),
		Username:  "janek",
		Email:     "janek@example.com",
		Role:      role,
		CreatedAt: time.Now().AddDate(-1, 0, 0),
	}
	repo.profiles[p.UserID] = p
	return p
}

func TestChangeEmailFirstTimeAllowed(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: p.UserID, Role: p.Role}

	require.NoError(t, svc.ChangeEmail(context.Background(), actor, "nowy@example.com"))
	assert.Equal(t, "nowy@example.com", repo.profiles[p.UserID].Email)
	assert.NotNil(t, repo.profiles[p.UserID].LastEmailChange, "cooldown window restarts at commit")
}

func TestChangeEmailDuringCooldown(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	last := time.Now().AddDate(0, 0, -10)
	p.LastEmailChange = &last
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: p.UserID, Role: p.Role}

	err := svc.ChangeEmail(context.Background(), actor, "nowy@example.com")
	require.ErrorIs(t, err, shared.ErrCooldownActive)
	var cooldown *shared.CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, 21, cooldown.DaysRemaining)
	assert.Equal(t, "janek@example.com", repo.profiles[p.UserID].Email)
}

func TestChangeEmailRecheckedAtWriteTime(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: p.UserID, Role: p.Role}

	// First writer commits; the second re-reads the fresh timestamp inside
	// its own transaction and is rejected.
	require.NoError(t, svc.ChangeEmail(context.Background(), actor, "pierwszy@example.com"))
	err := svc.ChangeEmail(context.Background(), actor, "drugi@example.com")
	assert.ErrorIs(t, err, shared.ErrCooldownActive)
	assert.Equal(t, "pierwszy@example.com", repo.profiles[p.UserID].Email)
}

func TestChangeEmailRejectsGarbage(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: p.UserID, Role: p.Role}

	assert.ErrorIs(t, svc.ChangeEmail(context.Background(), actor, "not-an-email"), shared.ErrValidation)
	assert.ErrorIs(t, svc.ChangeEmail(context.Background(), actor, ""), shared.ErrValidation)
}

func TestChangeEmailBannedActorDenied(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	svc, _ := newTestService(repo)
	actor := shared.Actor{ID: p.UserID, Role: p.Role, Banned: true}

	assert.ErrorIs(t, svc.ChangeEmail(context.Background(), actor, "nowy@example.com"), shared.ErrPermissionDenied)
}

func TestChangeAvatarStoresPublicURL(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	svc, blobs := newTestService(repo)
	actor := shared.Actor{ID: p.UserID, Role: p.Role}

	url, err := svc.ChangeAvatar(context.Background(), actor, "me.png", []byte{0x89, 0x50})
	require.NoError(t, err)
	assert.Equal(t, 1, blobs.uploads)
	assert.Contains(t, blobs.lastKey, p.UserID.String())
	require.NotNil(t, repo.profiles[p.UserID].AvatarURL)
	assert.Equal(t, url, *repo.profiles[p.UserID].AvatarURL)
	assert.NotNil(t, repo.profiles[p.UserID].LastAvatarChange)
}

func TestChangeAvatarTooLarge(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	svc, blobs := newTestService(repo)
	actor := shared.Actor{ID: p.UserID, Role: p.Role}

	_, err := svc.ChangeAvatar(context.Background(), actor, "huge.png", make([]byte, maxAvatarBytes+1))
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Zero(t, blobs.uploads, "oversized file never reaches the blob store")
}

func TestChangeAvatarDuringCooldownSkipsUpload(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	last := time.Now().AddDate(0, 0, -5)
	p.LastAvatarChange = &last
	svc, blobs := newTestService(repo)
	actor := shared.Actor{ID: p.UserID, Role: p.Role}

	_, err := svc.ChangeAvatar(context.Background(), actor, "me.png", []byte{1})
	assert.ErrorIs(t, err, shared.ErrCooldownActive)
	assert.Zero(t, blobs.uploads)
}

func TestAdminEditRequiresPermissionAndAudits(t *testing.T) {
	repo := newMockRepo()
	target := seedProfile(repo, roles.Zawodnik)
	admin := shared.Actor{ID: uuid.New(), Role: roles.Admin}

	svc, _ := newTestService(repo)
	err := svc.AdminEdit(context.Background(), admin, target.UserID, "nowy", "nowy@example.com", "")
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Empty(t, repo.entries)

	svc, _ = newTestService(repo, authz.PermEditAnyProfile)
	require.NoError(t, svc.AdminEdit(context.Background(), admin, target.UserID, "nowy", "nowy@example.com", "opis"))
	assert.Equal(t, "nowy", repo.profiles[target.UserID].Username)
	require.Len(t, repo.entries, 1)
	assert.Equal(t, audit.ActionEditProfile, repo.entries[0].Action)
	require.NotNil(t, repo.entries[0].TargetID)
	assert.Equal(t, target.UserID, *repo.entries[0].TargetID)
}

func TestSetBannedSelfProtected(t *testing.T) {
	repo := newMockRepo()
	admin := seedProfile(repo, roles.Admin)
	svc, _ := newTestService(repo, authz.PermBanUsers)
	actor := shared.Actor{ID: admin.UserID, Role: roles.Admin}

	err := svc.SetBanned(context.Background(), actor, admin.UserID, true)
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.False(t, repo.profiles[admin.UserID].Banned)
	assert.Empty(t, repo.entries)
}

func TestSetBannedTogglesAndAudits(t *testing.T) {
	repo := newMockRepo()
	target := seedProfile(repo, roles.Zawodnik)
	svc, _ := newTestService(repo, authz.PermBanUsers)
	admin := shared.Actor{ID: uuid.New(), Role: roles.Admin}
	ctx := context.Background()

	require.NoError(t, svc.SetBanned(ctx, admin, target.UserID, true))
	assert.True(t, repo.profiles[target.UserID].Banned)
	require.NoError(t, svc.SetBanned(ctx, admin, target.UserID, false))
	assert.False(t, repo.profiles[target.UserID].Banned)

	require.Len(t, repo.entries, 2)
	assert.Equal(t, audit.ActionBanUser, repo.entries[0].Action)
	assert.Equal(t, audit.ActionUnbanUser, repo.entries[1].Action)
}

func TestCanMutateService(t *testing.T) {
	repo := newMockRepo()
	p := seedProfile(repo, roles.Zawodnik)
	last := time.Now().AddDate(0, 0, -30)
	p.LastEmailChange = &last
	svc, _ := newTestService(repo)

	allowed, days, err := svc.CanMutate(context.Background(), p.UserID, FieldEmail)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 1, days)

	allowed, days, err = svc.CanMutate(context.Background(), p.UserID, FieldAvatar)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, days)
}
