package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/crucial707/tools-sys/internal/auth"
	"github.com/crucial707/tools-sys/internal/models"
	"github.com/crucial707/tools-sys/internal/repo"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserHandler(t *testing.T) (*UserHandler, sqlmock.Sqlmock) {
	t.Helper()
	database, mock := newMockDB(t)
	return &UserHandler{
		Repo:   repo.NewUserRepo(database),
		Hasher: auth.SHA256Hasher{},
		Audit:  repo.NewAuditRepo(database),
	}, mock
}

func TestUserHandler_CreateUser(t *testing.T) {
	h, mock := newUserHandler(t)

	mock.ExpectQuery(`INSERT INTO users \(username, password_hash, is_admin\)`).
		WithArgs("charlie", pw123Digest, true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "is_admin", "created_at"}).AddRow(3, "charlie", true, time.Now()))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("alice", "create", "user", int64(3), "charlie").
		WillReturnResult(sqlmock.NewResult(1, 1))

	body := mustJSON(t, map[string]interface{}{"username": "charlie", "password": "pw123", "is_admin": true})
	rr := httptest.NewRecorder()
	h.CreateUser(rr, asUser(requestWithChiURLParams(http.MethodPost, "/api/users", body, nil), "alice"))

	require.Equal(t, http.StatusCreated, rr.Code)
	env := decodeEnvelope(t, rr.Body)
	assert.NotContains(t, string(env.Data), "password")

	var user models.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "charlie", user.Username)
	assert.True(t, user.IsAdmin)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserHandler_CreateUser_BcryptPasswordTooLong(t *testing.T) {
	h, mock := newUserHandler(t)
	h.Hasher = auth.BcryptHasher{Cost: 4}

	body := mustJSON(t, map[string]string{"username": "dave", "password": strings.Repeat("x", 73)})
	rr := httptest.NewRecorder()
	h.CreateUser(rr, requestWithChiURLParams(http.MethodPost, "/api/users", body, nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr.Body)
	assert.Equal(t, "error", env.Status)
	assert.Equal(t, "validation failed", env.Message)
	assert.Equal(t, "must be at most 72 bytes", env.Fields["password"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserHandler_CreateUser_Duplicate(t *testing.T) {
	h, mock := newUserHandler(t)

	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})

	body := mustJSON(t, map[string]string{"username": "alice", "password": "pw123"})
	rr := httptest.NewRecorder()
	h.CreateUser(rr, requestWithChiURLParams(http.MethodPost, "/api/users", body, nil))

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "username already exists", decodeEnvelope(t, rr.Body).Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserHandler_CreateUser_Validation(t *testing.T) {
	h, mock := newUserHandler(t)

	body := mustJSON(t, map[string]string{"username": " "})
	rr := httptest.NewRecorder()
	h.CreateUser(rr, requestWithChiURLParams(http.MethodPost, "/api/users", body, nil))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	env := decodeEnvelope(t, rr.Body)
	assert.Equal(t, "is required", env.Fields["username"])
	assert.Equal(t, "is required", env.Fields["password"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserHandler_ListUsers(t *testing.T) {
	h, mock := newUserHandler(t)

	now := time.Now()
	mock.ExpectQuery(`SELECT id, username, is_admin, created_at\s+FROM users`).
		WithArgs(2, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "is_admin", "created_at"}).
			AddRow(1, "admin", true, now).
			AddRow(2, "alice", false, now))

	rr := httptest.NewRecorder()
	h.ListUsers(rr, httptest.NewRequest(http.MethodGet, "/api/users?limit=2&offset=-1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var users []models.User
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rr.Body).Data, &users))
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[1].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}
