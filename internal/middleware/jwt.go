package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crucial707/tools-sys/internal/auth"
	"github.com/crucial707/tools-sys/internal/metrics"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type key string

const (
	ClaimsKey        key = "claims"
	subjectHolderKey key = "subject_holder"
)

// subjectHolder lets an outer middleware (RequestLog) see who the request was
// authenticated as, since Bearer stores claims on a derived request.
type subjectHolder struct {
	username string
}

func withSubjectHolder(ctx context.Context, h *subjectHolder) context.Context {
	return context.WithValue(ctx, subjectHolderKey, h)
}

// TokenValidator is satisfied by *auth.Validator.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// Bearer rejects requests without a valid "Authorization: Bearer <token>" header
// and stores the verified claims in the request context.
func Bearer(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				metrics.IncTokenValidation("missing")
				unauthorized(w, "missing bearer token")
				return
			}

			claims, err := v.Validate(tokenStr)
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				metrics.IncTokenValidation("expired")
				unauthorized(w, "token expired")
				return
			case err != nil:
				metrics.IncTokenValidation("invalid")
				slog.Debug("bearer token rejected",
					"request_id", chimw.GetReqID(r.Context()),
					"path", r.URL.Path,
					"error", err)
				unauthorized(w, "invalid token")
				return
			}

			metrics.IncTokenValidation("valid")
			if h, ok := r.Context().Value(subjectHolderKey).(*subjectHolder); ok {
				h.username = claims.Subject
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// bearerToken extracts the credential; the scheme name is case-insensitive.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="tools-sys"`)
	writeError(w, message, http.StatusUnauthorized)
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims returns the claims stored by Bearer.
func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// GetUsername returns the authenticated subject, if any.
func GetUsername(ctx context.Context) (string, bool) {
	claims, ok := GetClaims(ctx)
	if !ok {
		return "", false
	}
	return claims.Subject, true
}
