package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/zarforum/zarforum/internal/shared"
	_ "github.com/zarforum/zarforum/testing"
)

type mockRepo struct {
	users    map[string]*User
	sessions map[string]uuid.UUID
}

func newAuthMockRepo() *mockRepo {
	return &mockRepo{users: map[string]*User{}, sessions: map[string]uuid.UUID{}}
}

func (r *mockRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (r *mockRepo) CreateSession(_ context.Context, id string, userID uuid.UUID, _ time.Time, _, _ string) error {
	r.sessions[id] = userID
	return nil
}

func (r *mockRepo) DeleteSession(_ context.Context, id string) error {
	delete(r.sessions, id)
	return nil
}

func seedUser(repo *mockRepo, email, password string, active bool) *User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	u := &User{ID: uuid.New(), Email: email, PasswordHash: string(hash), IsActive: active}
	repo.users[email] = u
	return u
}

func newTestRouter(t *testing.T, repo *mockRepo) chi.Router {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sm := shared.NewSessionManager(rdb, "zarforum_session", "test-secret", time.Hour, false)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, NewService(repo), sm)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sm.Load(req.Context(), req)
			require.NoError(t, err)
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), sess)))
			_ = sm.Commit(req.Context(), w, sess)
		})
	})
	h.MountRoutes(r)
	return r
}

func postJSON(router chi.Router, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginSuccessRegistersSession(t *testing.T) {
	repo := newAuthMockRepo()
	user := seedUser(repo, "kapitan@zarnovia.pl", "tajnehaslo1", true)
	router := newTestRouter(t, repo)

	rec := postJSON(router, "/login", `{"email":"kapitan@zarnovia.pl","password":"tajnehaslo1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), user.ID.String())
	require.Len(t, repo.sessions, 1)
	for _, userID := range repo.sessions {
		assert.Equal(t, user.ID, userID)
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	repo := newAuthMockRepo()
	seedUser(repo, "kapitan@zarnovia.pl", "tajnehaslo1", true)
	router := newTestRouter(t, repo)

	rec := postJSON(router, "/login", `{"email":"kapitan@zarnovia.pl","password":"zlehaslo12"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, repo.sessions)
}

func TestLoginDisabledAccountUnauthorized(t *testing.T) {
	repo := newAuthMockRepo()
	seedUser(repo, "bylyzawodnik@zarnovia.pl", "tajnehaslo1", false)
	router := newTestRouter(t, repo)

	rec := postJSON(router, "/login", `{"email":"bylyzawodnik@zarnovia.pl","password":"tajnehaslo1"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginMalformedPayloadRejected(t *testing.T) {
	repo := newAuthMockRepo()
	router := newTestRouter(t, repo)

	rec := postJSON(router, "/login", `{"email":"not-an-email"`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogoutRemovesSession(t *testing.T) {
	repo := newAuthMockRepo()
	seedUser(repo, "kapitan@zarnovia.pl", "tajnehaslo1", true)
	router := newTestRouter(t, repo)

	rec := postJSON(router, "/login", `{"email":"kapitan@zarnovia.pl","password":"tajnehaslo1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.sessions, 1)

	var sessionID string
	for id := range repo.sessions {
		sessionID = id
	}

	rec = postJSON(router, "/logout", "", &http.Cookie{Name: "zarforum_session", Value: sessionID})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, repo.sessions)
}
