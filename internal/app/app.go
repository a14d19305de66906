// Package app wires configuration into the storage, cache, queue and service
// used by the binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	_ "time/tzdata"

	"candrive/internal/cache"
	"candrive/internal/config"
	"candrive/internal/drive"
	"candrive/internal/leaderboard"
	"candrive/internal/queue"
	"candrive/internal/store"
)

// App holds long-lived dependencies. Redis is nil when REDIS_ADDR is unset.
type App struct {
	Config  config.App
	DB      *store.DB
	Redis   *store.Redis
	Queue   queue.Queue
	Service *drive.Service
}

// Open connects to the database, migrates it and builds the service.
func Open(ctx context.Context, cfg config.App) (*App, error) {
	db, err := store.NewDB(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	a := &App{Config: cfg, DB: db, Redis: store.NewRedis(cfg.RedisAddr)}
	if a.Redis != nil && !a.Redis.Healthy(ctx) {
		slog.Warn("redis not reachable at startup", "addr", cfg.RedisAddr)
	}

	// A nil cache skips lookups entirely, so no cache metrics are recorded without Redis.
	var c drive.Cache
	if a.Redis != nil {
		c = cache.NewRedis(a.Redis.Client)
	}

	if cfg.QueueBackend == "redis" && a.Redis != nil {
		a.Queue = queue.NewRedisQueue(a.Redis.Client, queue.DefaultKey)
	} else {
		if cfg.QueueBackend == "redis" {
			slog.Warn("QUEUE_BACKEND=redis without REDIS_ADDR, using in-memory queue")
		}
		a.Queue = queue.NewInMemory(256)
	}

	a.Service = drive.NewService(drive.NewRepository(db.Client), ServiceOptions(cfg), c, a.Queue)
	return a, nil
}

// InProcessQueue reports whether queue messages stay inside this process.
func (a *App) InProcessQueue() bool {
	_, ok := a.Queue.(*queue.InMemory)
	return ok
}

// Close releases connections.
func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		slog.Warn("redis close", "error", err)
	}
	if err := a.DB.Close(); err != nil {
		slog.Warn("db close", "error", err)
	}
}

// ServiceOptions maps configuration onto drive.Options.
func ServiceOptions(cfg config.App) drive.Options {
	loc, err := time.LoadLocation(cfg.DayTimezone)
	if err != nil {
		slog.Warn("unknown DAY_TIMEZONE, using UTC", "value", cfg.DayTimezone, "error", err)
		loc = time.UTC
	}
	return drive.Options{
		Leaderboard: leaderboard.Options{
			Limit:          cfg.LeaderboardLimit,
			CansPerStudent: cfg.BuyoutCansPerStudent,
			AwardLimit:     cfg.BuyoutAwardLimit,
		},
		Location:     loc,
		DayResetHour: cfg.DayResetHour,
		CacheTTL:     cfg.CacheTTL,
	}
}
