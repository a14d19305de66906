package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	HTTPPort        string
	DatabaseDriver  string
	DatabaseURL     string
	RedisAddr       string
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	QueueBackend    string
	RateLimitPerMin int
	CORSOrigins     []string

	CacheTTL             time.Duration
	LeaderboardLimit     int
	BuyoutCansPerStudent int
	BuyoutAwardLimit     int
	DayTimezone          string
	DayResetHour         int

	AdminUsername string
	AdminPassword string
	EventName     string

	RollbarToken string
	LogLevel     string
	LogFormat    string
}

var defaults = map[string]any{
	"APP_ENV":                 "dev",
	"HTTP_PORT":               "8081",
	"DATABASE_DRIVER":         "",
	"DATABASE_URL":            "file:candrive.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
	"REDIS_ADDR":              "",
	"JWT_ISSUER":              "candrive",
	"JWT_SIGNING_KEY":         "dev-signing-secret-change",
	"ACCESS_TTL":              8 * time.Hour,
	"QUEUE_BACKEND":           "memory",
	"RATE_LIMIT_PER_MIN":      60,
	"CORS_ORIGINS":            "*",
	"CACHE_TTL":               10 * time.Second,
	"LEADERBOARD_LIMIT":       50,
	"BUYOUT_CANS_PER_STUDENT": 10,
	"BUYOUT_AWARD_LIMIT":      20,
	"DAY_TIMEZONE":            "America/New_York",
	"DAY_RESET_HOUR":          3,
	"ADMIN_USERNAME":          "",
	"ADMIN_PASSWORD":          "",
	"EVENT_NAME":              "",
	"ROLLBAR_TOKEN":           "",
	"LOG_LEVEL":               "info",
	"LOG_FORMAT":              "text",
}

// Load reads an optional .env file and returns the config populated from the environment.
func Load() App {
	if path := os.Getenv("ENV_FILE"); path != "" {
		if err := godotenv.Load(path); err != nil {
			slog.Warn("env file not loaded", "path", path, "error", err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()
	return FromViper(v)
}

// FromViper builds App from an already populated viper instance.
func FromViper(v *viper.Viper) App {
	cfg := App{
		Env:             v.GetString("APP_ENV"),
		HTTPPort:        v.GetString("HTTP_PORT"),
		DatabaseDriver:  v.GetString("DATABASE_DRIVER"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		RedisAddr:       v.GetString("REDIS_ADDR"),
		JWTIssuer:       v.GetString("JWT_ISSUER"),
		JWTSigningKey:   v.GetString("JWT_SIGNING_KEY"),
		AccessTTL:       durationOr(v, "ACCESS_TTL", 8*time.Hour),
		QueueBackend:    v.GetString("QUEUE_BACKEND"),
		RateLimitPerMin: v.GetInt("RATE_LIMIT_PER_MIN"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),

		CacheTTL:             durationOr(v, "CACHE_TTL", 10*time.Second),
		LeaderboardLimit:     v.GetInt("LEADERBOARD_LIMIT"),
		BuyoutCansPerStudent: v.GetInt("BUYOUT_CANS_PER_STUDENT"),
		BuyoutAwardLimit:     v.GetInt("BUYOUT_AWARD_LIMIT"),
		DayTimezone:          v.GetString("DAY_TIMEZONE"),
		DayResetHour:         v.GetInt("DAY_RESET_HOUR"),

		AdminUsername: v.GetString("ADMIN_USERNAME"),
		AdminPassword: v.GetString("ADMIN_PASSWORD"),
		EventName:     v.GetString("EVENT_NAME"),

		RollbarToken: v.GetString("ROLLBAR_TOKEN"),
		LogLevel:     v.GetString("LOG_LEVEL"),
		LogFormat:    v.GetString("LOG_FORMAT"),
	}
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = DriverFor(cfg.DatabaseURL)
	}
	if cfg.DayResetHour < 0 || cfg.DayResetHour > 23 {
		slog.Warn("invalid DAY_RESET_HOUR, using 3", "value", cfg.DayResetHour)
		cfg.DayResetHour = 3
	}
	return cfg
}

// IsProduction reports whether the app runs with production settings.
func (a App) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// DriverFor picks a database/sql driver name from a connection string.
func DriverFor(url string) string {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "pgx"
	}
	return "sqlite"
}

func durationOr(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d, err := cast.ToDurationE(v.Get(key))
	if err != nil || d <= 0 {
		slog.Warn("invalid duration, using fallback", "key", key, "value", v.Get(key), "fallback", fallback)
		return fallback
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
