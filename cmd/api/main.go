package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/crucial707/tools-sys/internal/auth"
	"github.com/crucial707/tools-sys/internal/config"
	"github.com/crucial707/tools-sys/internal/db"
	"github.com/crucial707/tools-sys/internal/repo"
	"github.com/crucial707/tools-sys/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg := config.Load()
	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	// Migrations open their own connection, so run them before the pool exists.
	if cfg.DBMigrate {
		if err := db.Migrate(cfg); err != nil {
			return err
		}
		slog.Info("migrations applied", "driver", cfg.DBDriver)
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("connected to database", "driver", cfg.DBDriver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrapAdmin(ctx, database, cfg); err != nil {
		return err
	}

	router, err := newRouter(database, cfg)
	if err != nil {
		return err
	}

	go func() {
		if err := scheduler.Run(ctx, cfg.StoreProbeSchedule, database); err != nil {
			slog.Error("store probe not started", "error", err)
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		tlsOn := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
		slog.Info("starting server", "addr", srv.Addr, "tls", tlsOn, "env", cfg.Env)
		if tlsOn {
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// setupLogger installs the default slog logger from LOG_FORMAT and LOG_LEVEL.
func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}
	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// bootstrapAdmin creates the ADMIN_USERNAME account on first start. An
// existing account is left untouched, including its password.
func bootstrapAdmin(ctx context.Context, database *db.DB, cfg config.Config) error {
	if cfg.AdminUsername == "" {
		return nil
	}
	users := repo.NewUserRepo(database)

	_, err := users.GetByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	hasher, err := auth.NewHasher(cfg.PasswordHash)
	if err != nil {
		return err
	}
	digest, err := hasher.Hash(cfg.AdminPassword)
	if err != nil {
		return err
	}
	if _, err := users.Create(ctx, cfg.AdminUsername, digest, true); err != nil && !errors.Is(err, repo.ErrConflict) {
		return err
	}
	slog.Info("bootstrap admin created", "username", cfg.AdminUsername)
	return nil
}
