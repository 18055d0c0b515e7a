package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/tools-sys/internal/config"
	"github.com/crucial707/tools-sys/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sha256("pw123")
const pw123Digest = "23d47445adfb8991789b459b6ba1b974d727d310aa9d80b7c2875b9430c0ba25"

func testConfig() config.Config {
	return config.Config{
		JWTSecret:          "test-secret-for-integration",
		JWTTTL:             time.Hour,
		DBDriver:           config.DriverSQLite,
		PasswordHash:       "sha256",
		LoginRatePerMinute: 60,
		LoginBurst:         10,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	return newTestServerWithConfig(t, testConfig())
}

func newTestServerWithConfig(t *testing.T, cfg config.Config) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	r, err := newRouter(db.New(sqlDB, config.DriverSQLite), cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, mock
}

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) (*http.Response, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

// TestAPI_LoginThenCreateTool builds the full router over sqlmock, logs in for a
// token and uses it on a protected write.
func TestAPI_LoginThenCreateTool(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery(`SELECT id, username, password_hash, is_admin, created_at\s+FROM users`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at"}).
			AddRow(1, "alice", pw123Digest, false, time.Now()))
	mock.ExpectQuery(`INSERT INTO tools`).
		WithArgs("Grep", nil, nil, "/tools/grep", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("alice", "create", "tool", int64(11), "Grep").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// 1) Login
	resp, env := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "pw123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	var login struct {
		Token string `json:"token"`
		User  struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.Token)
	assert.Equal(t, "alice", login.User.Username)

	// 2) Create with the token
	resp, env = do(t, srv, http.MethodPost, "/api/tools", login.Token, map[string]string{"name": "Grep", "route": "/tools/grep"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":11,"message":"tool created"}`, string(env.Data))

	// 3) Me echoes the subject
	resp, env = do(t, srv, http.MethodGet, "/api/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(env.Data), `"username":"alice"`)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPI_MutationsRequireToken(t *testing.T) {
	srv, mock := newTestServer(t)

	tests := []struct {
		method, path, token string
		wantMessage         string
	}{
		{http.MethodPost, "/api/tools", "", "missing bearer token"},
		{http.MethodPut, "/api/tools/1", "garbage", "invalid token"},
		{http.MethodDelete, "/api/tools/1", "", "missing bearer token"},
		{http.MethodGet, "/api/users", "", "missing bearer token"},
		{http.MethodGet, "/api/audit", "", "missing bearer token"},
	}
	for _, tt := range tests {
		resp, env := do(t, srv, tt.method, tt.path, tt.token, map[string]string{"name": "x", "route": "/x"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tt.method, tt.path)
		assert.Equal(t, "error", env.Status)
		assert.Equal(t, tt.wantMessage, env.Message)
		assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPI_ListToolsIsPublic(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(`FROM tools ORDER BY`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "version", "route", "icon", "created_at", "updated_at"}))

	resp, env := do(t, srv, http.MethodGet, "/api/tools", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", env.Status)
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPI_LoginWrongPassword(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(`FROM users`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at"}).
			AddRow(1, "alice", pw123Digest, false, time.Now()))

	resp, env := do(t, srv, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid username or password", env.Message)
}

// loginVia posts a login for an unknown user with the given X-Forwarded-For.
func loginVia(t *testing.T, srv *httptest.Server, forwardedFor string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/auth/login",
		strings.NewReader(`{"username":"mallory","password":"guess"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func expectUnknownUser(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectQuery(`FROM users`).
			WithArgs("mallory").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at"}))
	}
}

func TestAPI_LoginLimitIgnoresForwardedFor(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRatePerMinute = 1
	cfg.LoginBurst = 2
	srv, mock := newTestServerWithConfig(t, cfg)
	expectUnknownUser(mock, 2)

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, loginVia(t, srv, fmt.Sprintf("10.9.9.%d", i)))
	}
	assert.Equal(t, []int{401, 401, 429, 429, 429, 429}, codes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPI_LoginLimitBehindTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.LoginRatePerMinute = 1
	cfg.LoginBurst = 1
	cfg.TrustedProxies = []string{"127.0.0.1", "::1"}
	srv, mock := newTestServerWithConfig(t, cfg)
	expectUnknownUser(mock, 3)

	assert.Equal(t, http.StatusUnauthorized, loginVia(t, srv, "203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, loginVia(t, srv, "203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, loginVia(t, srv, "203.0.113.2"))
	assert.Equal(t, http.StatusUnauthorized, loginVia(t, srv, "203.0.113.3"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRouter_RejectsBadTrustedProxy(t *testing.T) {
	sqlDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	cfg := testConfig()
	cfg.TrustedProxies = []string{"proxy.internal"}
	_, err = newRouter(db.New(sqlDB, config.DriverSQLite), cfg)
	assert.Error(t, err)
}

func TestAPI_RootAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, env := do(t, srv, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"message":"Tools-Sys API v1.0.0"}`, string(env.Data))

	resp, env = do(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", env.Status)

	resp, env = do(t, srv, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error", env.Status)
}

// TestAPI_Ready checks that /ready pings the DB.
func TestAPI_Ready(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectPing()
	resp, _ := do(t, srv, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	mock.ExpectPing().WillReturnError(errors.New("database is closed"))
	resp, _ = do(t, srv, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAPI_MetricsExposed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBootstrapAdmin(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	cfg := testConfig()
	cfg.AdminUsername = "root"
	cfg.AdminPassword = "pw123"

	mock.ExpectQuery(`FROM users\s+WHERE username = \?`).
		WithArgs("root").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at"}))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("root", pw123Digest, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "is_admin", "created_at"}).AddRow(1, "root", true, time.Now()))

	require.NoError(t, bootstrapAdmin(context.Background(), db.New(sqlDB, config.DriverSQLite), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapAdmin_Existing(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	cfg := testConfig()
	cfg.AdminUsername = "root"
	cfg.AdminPassword = "changed"

	mock.ExpectQuery(`FROM users`).
		WithArgs("root").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "is_admin", "created_at"}).
			AddRow(1, "root", pw123Digest, true, time.Now()))

	require.NoError(t, bootstrapAdmin(context.Background(), db.New(sqlDB, config.DriverSQLite), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warn").String())
	assert.Equal(t, "INFO", parseLevel("loud").String())
}
