package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/crucial707/tools-sys/internal/auth"
	"github.com/crucial707/tools-sys/internal/metrics"
	"github.com/crucial707/tools-sys/internal/middleware"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Verifier *auth.Verifier
	Issuer   *auth.Issuer
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// Remember is accepted for client compatibility; token lifetime is fixed.
	Remember bool `json:"remember"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  auth.Identity `json:"user"`
}

// ==========================
// Login
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	id, err := h.Verifier.Verify(r.Context(), input.Username, input.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		metrics.IncLoginAttempt("invalid")
		// Never log the submitted username.
		slog.Info("login rejected", "request_id", chimw.GetReqID(r.Context()))
		JSONError(w, "invalid username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		metrics.IncLoginAttempt("error")
		slog.Error("login failed", "error", err, "request_id", chimw.GetReqID(r.Context()))
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	token, _, err := h.Issuer.Issue(id)
	if err != nil {
		metrics.IncLoginAttempt("error")
		slog.Error("issue token", "error", err, "request_id", chimw.GetReqID(r.Context()))
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	metrics.IncLoginAttempt("success")
	slog.Info("login succeeded", "username", id.Username, "request_id", chimw.GetReqID(r.Context()))
	JSONSuccess(w, http.StatusOK, loginResponse{Token: token, User: id})
}

// ==========================
// Me
// ==========================
// Me echoes the identity carried by the bearer token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		JSONError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.UTC()
	}
	JSONSuccess(w, http.StatusOK, map[string]interface{}{
		"username":   claims.Username(),
		"expires_at": expiresAt,
	})
}
