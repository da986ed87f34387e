package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"worklog/backend/internal/config"
	"worklog/backend/internal/db"
	"worklog/backend/internal/handler"
	"worklog/backend/internal/logging"
	"worklog/backend/internal/repository"
	"worklog/backend/internal/router"
	"worklog/backend/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worklog server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	lock, err := db.AcquireLock(cfg.LockPath)
	if err != nil {
		return err
	}
	defer lock.Release()
	logger.Info("database lock acquired", "path", lock.Path())

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applied, err := db.RunMigrations(ctx, database)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if len(applied) > 0 {
		logger.Info("migrations applied", slog.Any("names", applied))
	}

	if cfg.PasswordHash == "" {
		logger.Warn("no owner password configured; login is disabled, use worklogctl token for API access")
	}

	authService := service.NewAuthService(cfg.PasswordHash, cfg.JWTSecret, cfg.TokenTTL())
	tracker := service.NewTrackerService(repository.NewWorklogRepository(database), service.TrackerOptions{
		NormMinutes: cfg.WorkNormMinutes,
		Location:    loc,
		Logger:      logger,
	})

	if logging.ParseLevel(cfg.LogLevel) > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.New(
		authService,
		handler.NewAuthHandler(authService),
		handler.NewWorklogHandler(tracker),
		cfg.CORSOrigins,
		logger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("backend listening",
			slog.String("addr", srv.Addr),
			slog.String("db", cfg.DBPath),
			slog.Int("work_norm_minutes", cfg.WorkNormMinutes),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
