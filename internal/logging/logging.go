// Package logging configures slog and optional rollbar reporting for the
// binaries.
package logging

import (
	"log/slog"
	"os"
	"strings"

	"github.com/rollbar/rollbar-go"
)

// Setup installs the default slog logger. format is "json" or "text".
func Setup(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// InitRollbar configures the global rollbar client. It reports whether
// reporting is enabled.
func InitRollbar(token, env, host string) bool {
	if token == "" {
		rollbar.SetEnabled(false)
		return false
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetServerHost(host)
	rollbar.SetEnabled(true)
	return true
}

// Flush waits for queued rollbar items.
func Flush() {
	rollbar.Close()
}
