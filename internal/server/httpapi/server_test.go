package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comdesk/sessiond/internal/logging"
	"github.com/comdesk/sessiond/internal/server/repositories/credentials"
	"github.com/comdesk/sessiond/internal/server/repositories/users"
	"github.com/comdesk/sessiond/internal/server/services"
	"github.com/comdesk/sessiond/internal/server/token"
)

const testTokenTTL = 15 * time.Minute

type apiFixture struct {
	handler http.Handler
	now     *time.Time
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &now

	codec, err := token.NewCodec([]byte("test-secret"), testTokenTTL, time.UTC,
		token.WithClock(func() time.Time { return *clock }))
	require.NoError(t, err)

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := services.NewTokenService(users.NewMemoryRepository(), credentials.NewMemoryRepository(), codec, logger)
	srv := NewServer("127.0.0.1:0", logger, svc)

	return &apiFixture{handler: srv.Router(), now: clock}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	resp := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec, resp
}

func (f *apiFixture) register(t *testing.T, username, password string) (access, refresh string) {
	t.Helper()
	rec, resp := f.do(t, http.MethodPost, "/api/register", map[string]string{
		"username":    username,
		"password":    password,
		"displayName": "Test User",
		"role":        "manager",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return rawString(t, resp["accessToken"]), rawString(t, resp["refreshToken"])
}

func rawString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(raw, &s))
	return s
}

func errorCode(t *testing.T, resp map[string]json.RawMessage) string {
	t.Helper()
	return rawString(t, resp["error_code"])
}

func TestRegisterIssuesPair(t *testing.T) {
	f := newAPIFixture(t)

	rec, resp := f.do(t, http.MethodPost, "/api/register", map[string]string{
		"username":    "alice",
		"password":    "s3cret",
		"displayName": "Alice",
		"role":        "admin",
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rawString(t, resp["accessToken"]))
	assert.NotEmpty(t, rawString(t, resp["refreshToken"]))
	assert.NotEmpty(t, rawString(t, resp["expiresAt"]))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var user struct {
		Username    string `json:"username"`
		DisplayName string `json:"displayName"`
		Role        string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(resp["user"], &user))
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.DisplayName)
	assert.Equal(t, "admin", user.Role)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "alice", "s3cret")

	rec, resp := f.do(t, http.MethodPost, "/api/register", map[string]string{
		"username": "alice",
		"password": "other",
	}, nil)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "USER_EXISTS", errorCode(t, resp))
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "alice", "s3cret")

	tests := []struct {
		name     string
		username string
		password string
		status   int
		code     string
	}{
		{"valid credentials", "alice", "s3cret", http.StatusOK, ""},
		{"wrong password", "alice", "nope", http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"unknown user", "bob", "s3cret", http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := f.do(t, http.MethodPost, "/api/login", map[string]string{
				"username": tt.username,
				"password": tt.password,
			}, nil)

			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(t, resp))
				return
			}
			assert.NotEmpty(t, rawString(t, resp["accessToken"]))
			assert.NotEmpty(t, rawString(t, resp["refreshToken"]))
		})
	}
}

func TestMalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/api/register", "/api/login", "/api/refresh", "/api/logout"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString("{not json"))
			rec := httptest.NewRecorder()
			f.handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")
		})
	}
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	f := newAPIFixture(t)
	access, refresh := f.register(t, "alice", "s3cret")

	rec, resp := f.do(t, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	newRefresh := rawString(t, resp["refreshToken"])
	assert.NotEqual(t, refresh, newRefresh)

	// replaying the consumed refresh token must fail
	rec, resp = f.do(t, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "REFRESH_TOKEN_MISMATCH", errorCode(t, resp))
}

func TestRefreshAfterExpiry(t *testing.T) {
	f := newAPIFixture(t)
	access, refresh := f.register(t, "alice", "s3cret")

	*f.now = f.now.Add(testTokenTTL + time.Minute)

	rec, resp := f.do(t, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	}, nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEqual(t, access, rawString(t, resp["accessToken"]))
}

func TestRefreshWithTamperedToken(t *testing.T) {
	f := newAPIFixture(t)
	access, refresh := f.register(t, "alice", "s3cret")

	tampered := []byte(access)
	if tampered[len(tampered)-1] == 'A' {
		tampered[len(tampered)-1] = 'B'
	} else {
		tampered[len(tampered)-1] = 'A'
	}

	rec, resp := f.do(t, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  string(tampered),
		"refreshToken": refresh,
	}, nil)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_TOKEN", errorCode(t, resp))
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAPIFixture(t)
	access, refresh := f.register(t, "alice", "s3cret")

	rec, resp := f.do(t, http.MethodPost, "/api/logout", map[string]string{
		"accessToken": access,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `true`, string(resp["revoked"]))

	rec, resp = f.do(t, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  access,
		"refreshToken": refresh,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(t, resp))
}

func TestSessionEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	access, _ := f.register(t, "alice", "s3cret")

	rec, resp := f.do(t, http.MethodGet, "/api/session", nil, map[string]string{
		"Authorization": "Bearer " + access,
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "alice", rawString(t, resp["username"]))
	assert.Equal(t, "Test User", rawString(t, resp["displayName"]))
	assert.Equal(t, "manager", rawString(t, resp["role"]))

	expiresAt, err := time.Parse(time.RFC3339, rawString(t, resp["expiresAt"]))
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(testTokenTTL), expiresAt.UTC())
}

func TestSessionAuthFailures(t *testing.T) {
	f := newAPIFixture(t)
	access, _ := f.register(t, "alice", "s3cret")

	t.Run("missing header", func(t *testing.T) {
		rec, resp := f.do(t, http.MethodGet, "/api/session", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "MISSING_TOKEN", errorCode(t, resp))
	})

	t.Run("garbage token", func(t *testing.T) {
		rec, resp := f.do(t, http.MethodGet, "/api/session", nil, map[string]string{
			"Authorization": "Bearer not-a-token",
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "INVALID_TOKEN", errorCode(t, resp))
	})

	t.Run("expired token", func(t *testing.T) {
		*f.now = f.now.Add(testTokenTTL + time.Minute)
		defer func() { *f.now = f.now.Add(-(testTokenTTL + time.Minute)) }()

		rec, resp := f.do(t, http.MethodGet, "/api/session", nil, map[string]string{
			"Authorization": "Bearer " + access,
		})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_EXPIRED", errorCode(t, resp))
	})
}

// Full session lifecycle over the wire: login, expire, renew once, then
// confirm the replaced pair is dead while the renewed one works.
func TestSessionLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "alice", "s3cret")

	rec, resp := f.do(t, http.MethodPost, "/api/login", map[string]string{
		"username": "alice",
		"password": "s3cret",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	access1 := rawString(t, resp["accessToken"])
	refresh1 := rawString(t, resp["refreshToken"])

	*f.now = f.now.Add(16 * time.Minute)

	rec, resp = f.do(t, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  access1,
		"refreshToken": refresh1,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access2 := rawString(t, resp["accessToken"])
	refresh2 := rawString(t, resp["refreshToken"])

	// the old pair is gone for good
	rec, resp = f.do(t, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  access1,
		"refreshToken": refresh1,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "REFRESH_TOKEN_MISMATCH", errorCode(t, resp))

	// the renewed pair authenticates and renews
	rec, _ = f.do(t, http.MethodGet, "/api/session", nil, map[string]string{
		"Authorization": "Bearer " + access2,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/api/refresh", map[string]string{
		"accessToken":  access2,
		"refreshToken": refresh2,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
