package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aischool/aischool-backend/internal/config"
	"github.com/aischool/aischool-backend/internal/password"
	"github.com/aischool/aischool-backend/internal/routes"
	"github.com/aischool/aischool-backend/internal/store"
)

func newTestServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	return newTestServerWithCache(t, st, nil)
}

func newTestServerWithCache(t *testing.T, st store.Store, cache redis.UniversalClient) *Server {
	t.Helper()
	cfg, err := config.LoadFrom(map[string]string{
		"SECRET_KEY": "test-secret",
		"STORE_URL":  "memory://",
	})
	require.NoError(t, err)
	srv, err := New(routes.Deps{Cfg: cfg, Store: st, Cache: cache, Hasher: password.NewHasher(bcrypt.MinCost)})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	return doWithHeaders(t, srv, method, path, token, body, nil)
}

func doWithHeaders(t *testing.T, srv *Server, method, path, token string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	}
	return resp.StatusCode, out
}

func registerToken(t *testing.T, srv *Server, email string) string {
	t.Helper()
	status, body := do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": email, "password": "secret1", "full_name": "A",
	})
	require.Equal(t, http.StatusCreated, status, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestProfileLifecycle(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	t1 := registerToken(t, srv, "a@x.com")

	status, body := do(t, srv, http.MethodPost, "/api/profiles", t1, map[string]any{"name": "Kid", "age": 7})
	require.Equal(t, http.StatusCreated, status, body)
	created := body["profile"].(map[string]any)
	p1 := created["id"].(string)
	assert.Equal(t, "Kid", created["name"])
	assert.Equal(t, float64(7), created["age"])
	assert.Equal(t, "default", created["avatar"])
	assert.Equal(t, "{}", created["progress"])

	status, body = do(t, srv, http.MethodGet, "/api/profiles", t1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])
	list := body["profiles"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, p1, list[0].(map[string]any)["id"])

	status, body = do(t, srv, http.MethodPut, "/api/profiles/"+p1, t1, map[string]any{"grade": "2nd", "age": "8", "unknown": 1})
	require.Equal(t, http.StatusOK, status, body)
	updated := body["profile"].(map[string]any)
	assert.Equal(t, "2nd", updated["grade"])
	assert.Equal(t, float64(8), updated["age"])

	status, _ = do(t, srv, http.MethodDelete, "/api/profiles/"+p1, t1, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = do(t, srv, http.MethodGet, "/api/profiles", t1, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])
	assert.Equal(t, []any{}, body["profiles"])

	status, body = do(t, srv, http.MethodGet, "/api/profiles/"+p1, t1, nil)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "profile not found", body["error"])
}

func TestProfilesAreScopedToCaller(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	ta := registerToken(t, srv, "a@x.com")
	tb := registerToken(t, srv, "b@x.com")

	status, body := do(t, srv, http.MethodPost, "/api/profiles", ta, map[string]any{"name": "Kid", "age": 7})
	require.Equal(t, http.StatusCreated, status)
	id := body["profile"].(map[string]any)["id"].(string)

	status, body = do(t, srv, http.MethodGet, "/api/profiles", tb, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])

	status, _ = do(t, srv, http.MethodGet, "/api/profiles/"+id, tb, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProfileValidation(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	token := registerToken(t, srv, "a@x.com")

	for _, age := range []any{2, 19, "abc"} {
		status, body := do(t, srv, http.MethodPost, "/api/profiles", token, map[string]any{"name": "Kid", "age": age})
		assert.Equal(t, http.StatusBadRequest, status, "age %v: %v", age, body)
	}
	status, _ := do(t, srv, http.MethodPost, "/api/profiles", token, map[string]any{"age": 5})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProfilesRequireToken(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	status, body := do(t, srv, http.MethodGet, "/api/profiles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "authorization token required", body["error"])

	status, body = do(t, srv, http.MethodGet, "/api/profiles", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid or expired token", body["error"])
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	token := registerToken(t, srv, "a@x.com")

	status, body := do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "A@x.com", "password": "secret1", "full_name": "Again",
	})
	assert.Equal(t, http.StatusConflict, status, body)

	status, body = do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "c@x.com", "password": "123", "full_name": "C",
	})
	assert.Equal(t, http.StatusBadRequest, status, body)

	status, body = do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "a@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, status, body)
	user := body["user"].(map[string]any)
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, user, "password_hash")
	assert.NotNil(t, user["last_login"])

	status, body = do(t, srv, http.MethodGet, "/api/auth/user", token, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "a@x.com", body["user"].(map[string]any)["email"])

	status, _ = do(t, srv, http.MethodGet, "/api/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = do(t, srv, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Logged out successfully", body["message"])
}

func TestLoginFailuresLookAlike(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	registerToken(t, srv, "a@x.com")

	wrongStatus, wrongBody := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "a@x.com", "password": "nope123"})
	missingStatus, missingBody := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "who@x.com", "password": "nope123"})

	assert.Equal(t, http.StatusUnauthorized, wrongStatus)
	assert.Equal(t, wrongStatus, missingStatus)
	assert.Equal(t, wrongBody, missingBody)
}

func TestHealthRootAndNotFound(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	status, body := do(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	status, body = do(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = do(t, srv, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "endpoint not found", body["error"])
}

var errBackendDown = errors.New("dial tcp 10.0.0.1:6379: connection refused")

type brokenStore struct{}

func (brokenStore) Table(string) store.Table    { return brokenTable{} }
func (brokenStore) Ping(context.Context) error { return errBackendDown }

type brokenTable struct{}

func (brokenTable) Get(context.Context, store.Key) (store.Entity, error) {
	return store.Entity{}, errBackendDown
}

func (brokenTable) QueryPartition(context.Context, string, store.Predicate) iter.Seq2[store.Entity, error] {
	return func(yield func(store.Entity, error) bool) {
		yield(store.Entity{}, errBackendDown)
	}
}

func (brokenTable) Create(context.Context, store.Entity) error { return errBackendDown }

func (brokenTable) MergeUpdate(context.Context, store.Key, store.Fields) error {
	return errBackendDown
}

func TestStoreFailuresAreHidden(t *testing.T) {
	srv := newTestServer(t, brokenStore{})

	status, body := do(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "a@x.com", "password": "secret1", "full_name": "A",
	})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", body["error"])
	assert.NotContains(t, body["error"], "10.0.0.1")

	status, body = do(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "unavailable", body["checks"].(map[string]any)["store"])
}

func TestIdempotentProfileCreate(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })
	srv := newTestServerWithCache(t, store.NewMemory(), cache)
	token := registerToken(t, srv, "a@x.com")

	headers := map[string]string{"Idempotency-Key": "create-kid-1"}
	payload := map[string]any{"name": "Kid", "age": 7}
	status, first := doWithHeaders(t, srv, http.MethodPost, "/api/profiles", token, payload, headers)
	require.Equal(t, http.StatusCreated, status, first)
	status, second := doWithHeaders(t, srv, http.MethodPost, "/api/profiles", token, payload, headers)
	require.Equal(t, http.StatusCreated, status, second)
	assert.Equal(t, first, second)

	status, list := do(t, srv, http.MethodGet, "/api/profiles", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), list["count"])

	status, health := do(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", health["checks"].(map[string]any)["cache"])
}
