package main

import (
	"fmt"
	"net/http"
	"net/netip"

	"github.com/crucial707/tools-sys/internal/auth"
	"github.com/crucial707/tools-sys/internal/config"
	"github.com/crucial707/tools-sys/internal/db"
	"github.com/crucial707/tools-sys/internal/handlers"
	"github.com/crucial707/tools-sys/internal/middleware"
	"github.com/crucial707/tools-sys/internal/repo"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// newRouter wires repositories, the token pair and handlers onto a chi router.
func newRouter(database *db.DB, cfg config.Config) (http.Handler, error) {
	hasher, err := auth.NewHasher(cfg.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}
	tokens := auth.TokenConfigFrom(cfg)

	proxies := make([]netip.Prefix, 0, len(cfg.TrustedProxies))
	for _, p := range cfg.TrustedProxies {
		prefix, err := config.ParseProxy(p)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", p, err)
		}
		proxies = append(proxies, prefix)
	}

	userRepo := repo.NewUserRepo(database)
	toolRepo := repo.NewToolRepo(database)
	auditRepo := repo.NewAuditRepo(database)

	authHandler := &handlers.AuthHandler{
		Verifier: auth.NewVerifier(userRepo, hasher),
		Issuer:   auth.NewIssuer(tokens),
	}
	toolHandler := &handlers.ToolHandler{Repo: toolRepo, Audit: auditRepo}
	userHandler := &handlers.UserHandler{Repo: userRepo, Hasher: hasher, Audit: auditRepo}
	auditHandler := &handlers.AuditHandler{Repo: auditRepo}
	healthHandler := &handlers.HealthHandler{Store: database}

	requireToken := middleware.Bearer(auth.NewValidator(tokens))
	loginLimiter := middleware.LoginRateLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if len(proxies) > 0 {
		r.Use(middleware.RealIP(proxies))
	}
	r.Use(middleware.RequestLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.JSONBody(middleware.DefaultMaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.JSONError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	// ==========================
	// Service
	// ==========================
	r.Get("/", healthHandler.Root)
	r.Get("/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)

		// ==========================
		// Auth
		// ==========================
		r.With(loginLimiter.Middleware).Post("/auth/login", authHandler.Login)
		r.With(requireToken).Get("/auth/me", authHandler.Me)

		// ==========================
		// Tools
		// ==========================
		r.Route("/tools", func(r chi.Router) {
			r.Get("/", toolHandler.ListTools)
			r.Get("/{id}", toolHandler.GetTool)

			r.Group(func(r chi.Router) {
				r.Use(requireToken)
				r.Post("/", toolHandler.CreateTool)
				r.Put("/{id}", toolHandler.UpdateTool)
				r.Delete("/{id}", toolHandler.DeleteTool)
			})
		})

		// ==========================
		// Users & audit
		// ==========================
		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Get("/users", userHandler.ListUsers)
			r.Post("/users", userHandler.CreateUser)
			r.Get("/audit", auditHandler.ListAudit)
		})
	})

	return r, nil
}
