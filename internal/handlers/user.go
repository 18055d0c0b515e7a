package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crucial707/tools-sys/internal/auth"
	"github.com/crucial707/tools-sys/internal/middleware"
	"github.com/crucial707/tools-sys/internal/repo"
)

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Repo   *repo.UserRepo
	Hasher auth.Hasher
	Audit  *repo.AuditRepo
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=1,max=255"`
	Password string `json:"password" validate:"required,min=1"`
	IsAdmin  bool   `json:"is_admin"`
}

// ==========================
// List Users
// ==========================
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	users, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		slog.Error("list users", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	JSONSuccess(w, http.StatusOK, users)
}

// ==========================
// Create User
// ==========================
// CreateUser provisions an account, digesting the password with the configured hasher.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input createUserRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	input.Username = strings.TrimSpace(input.Username)
	if !validateInput(w, input) {
		return
	}

	digest, err := h.Hasher.Hash(input.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		JSONValidationError(w, "validation failed", map[string]string{
			"password": fmt.Sprintf("must be at most %d bytes", auth.BcryptMaxPasswordBytes),
		}, http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("hash password", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	user, err := h.Repo.Create(r.Context(), input.Username, digest, input.IsAdmin)
	if errors.Is(err, repo.ErrConflict) {
		JSONError(w, "username already exists", http.StatusConflict)
		return
	}
	if err != nil {
		slog.Error("create user", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	actor, _ := middleware.GetUsername(r.Context())
	recordAudit(r, h.Audit, actor, "create", "user", user.ID, user.Username)
	JSONSuccess(w, http.StatusCreated, user)
}
