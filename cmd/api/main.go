package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"candrive/internal/app"
	"candrive/internal/config"
	"candrive/internal/httpapi"
	"candrive/internal/logging"
	"candrive/internal/milestone"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	reporting := logging.InitRollbar(cfg.RollbarToken, cfg.Env, "candrive-api")
	defer logging.Flush()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg, reporting); err != nil {
		slog.Error("http server failed", "error", err)
		logging.Flush()
		os.Exit(1)
	}
}

func runHTTP(cfg config.App, reporting bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Service.Bootstrap(ctx, cfg.EventName, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return err
	}

	// Nobody else can drain an in-memory queue.
	if a.InProcessQueue() {
		go func() {
			if err := milestone.Run(ctx, a.Queue, a.Service); err != nil {
				slog.Error("milestone consumer", "error", err)
			}
		}()
	}

	checks := map[string]httpapi.Check{"db": a.DB.Healthy}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Healthy
	}
	r := httpapi.NewRouter(a.Service, httpapi.Config{
		SigningKey:      cfg.JWTSigningKey,
		Issuer:          cfg.JWTIssuer,
		AccessTTL:       cfg.AccessTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
		ReportErrors:    reporting,
	}, checks)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr, "env", cfg.Env, "driver", cfg.DatabaseDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return err
	}
	slog.Info("shutting down server")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced shutdown", "error", err)
	}
	cancel()

	slog.Info("server exited")
	return nil
}
