package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/auth"
	"github.com/MacJediWizard/shlink-dashboard-oidc-sub000/internal/biz"
)

type memServerRepo struct {
	servers map[string]*biz.ShlinkServer
	nextID  int64
}

func newMemServerRepo() *memServerRepo {
	return &memServerRepo{servers: map[string]*biz.ShlinkServer{}}
}

func (r *memServerRepo) ListByUser(_ context.Context, userID int64) ([]*biz.ShlinkServer, error) {
	out := []*biz.ShlinkServer{}
	for _, s := range r.servers {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memServerRepo) GetByPublicID(_ context.Context, userID int64, publicID string) (*biz.ShlinkServer, error) {
	s, ok := r.servers[publicID]
	if !ok || s.UserID != userID {
		return nil, biz.ErrNotFound
	}
	return s, nil
}

func (r *memServerRepo) Create(_ context.Context, s *biz.ShlinkServer) error {
	r.nextID++
	s.ID = r.nextID
	r.servers[s.PublicID] = s
	return nil
}

func (r *memServerRepo) Delete(_ context.Context, userID int64, publicID string) error {
	s, ok := r.servers[publicID]
	if !ok || s.UserID != userID {
		return biz.ErrNotFound
	}
	delete(r.servers, publicID)
	return nil
}

type serversFixture struct {
	router   http.Handler
	users    *memUserRepo
	sessions *memSessionRepo
	repo     *memServerRepo
}

func newServersFixture(t *testing.T) *serversFixture {
	t.Helper()
	users := newMemUserRepo()
	sessionRepo := newMemSessionRepo()
	repo := newMemServerRepo()

	sessions := biz.NewSessionUsecase(sessionRepo, time.Hour)
	middleware := SessionMiddleware(sessions, users)

	r := mux.NewRouter()
	r.Use(middleware)
	NewServersHandler(biz.NewServersUsecase(repo)).RegisterRoutes(r)

	return &serversFixture{router: r, users: users, sessions: sessionRepo, repo: repo}
}

func (f *serversFixture) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	user := &biz.User{Username: username, Role: auth.RoleManagedUser, OIDCSubject: "sub-" + username}
	require.NoError(t, f.users.Create(context.Background(), user))
	id := "sess-" + username
	f.sessions.sessions[id] = &biz.Session{ID: id, UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	return &http.Cookie{Name: SessionCookieName, Value: id}
}

func TestServersRequireSession(t *testing.T) {
	f := newServersFixture(t)

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/servers", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServersCRUDScopedToUser(t *testing.T) {
	f := newServersFixture(t)
	alice := f.login(t, "alice")
	bob := f.login(t, "bob")

	// Alice registers a server.
	body := `{"name":"Main","base_url":"https://s.example.com/","api_key":"secret"}`
	req := httptest.NewRequest(http.MethodPost, "/servers", strings.NewReader(body))
	req.AddCookie(alice)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Main"`)
	assert.NotContains(t, rec.Body.String(), "secret", "API key must not be echoed")

	var publicID string
	for id := range f.repo.servers {
		publicID = id
	}
	require.NotEmpty(t, publicID)

	// Bob cannot see it.
	req = httptest.NewRequest(http.MethodGet, "/servers/"+publicID, nil)
	req.AddCookie(bob)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Alice can.
	req = httptest.NewRequest(http.MethodGet, "/servers/"+publicID, nil)
	req.AddCookie(alice)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Bob's list is empty, and he cannot delete Alice's server.
	req = httptest.NewRequest(http.MethodGet, "/servers", nil)
	req.AddCookie(bob)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	req = httptest.NewRequest(http.MethodDelete, "/servers/"+publicID, nil)
	req.AddCookie(bob)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/servers/"+publicID, nil)
	req.AddCookie(alice)
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServersCreateValidation(t *testing.T) {
	f := newServersFixture(t)
	alice := f.login(t, "alice")

	req := httptest.NewRequest(http.MethodPost, "/servers", strings.NewReader(`{"name":"","base_url":"","api_key":""}`))
	req.AddCookie(alice)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
