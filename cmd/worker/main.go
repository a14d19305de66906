package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"candrive/internal/app"
	"candrive/internal/config"
	"candrive/internal/drive"
	"candrive/internal/logging"
	"candrive/internal/milestone"
)

const rescanEvery = 5 * time.Minute

// Worker consumes donation messages and records buyout milestones.
func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.LogFormat)
	logging.InitRollbar(cfg.RollbarToken, cfg.Env, "candrive-worker")
	defer logging.Flush()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutdown signal received")
		cancel()
	}()

	a, err := app.Open(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if a.InProcessQueue() {
		slog.Warn("worker has no shared queue; only periodic rescans will run")
	}

	go rescan(ctx, a.Service)

	if err := milestone.Run(ctx, a.Queue, a.Service); err != nil {
		slog.Error("worker stopped", "error", err)
		return
	}
	slog.Info("worker stopped")
}

// rescan covers messages lost between publish and consume.
func rescan(ctx context.Context, svc *drive.Service) {
	t := time.NewTicker(rescanEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		evt, err := svc.CurrentEvent(ctx)
		if errors.Is(err, drive.ErrNotFound) {
			continue
		}
		if err != nil {
			slog.Warn("rescan: active event", "error", err)
			continue
		}
		n, err := svc.RecordMilestones(ctx, evt.ID)
		if err != nil {
			slog.Warn("rescan failed", "event_id", evt.ID, "error", err)
			continue
		}
		if n > 0 {
			slog.Info("rescan recorded milestones", "event_id", evt.ID, "count", n)
		}
	}
}
