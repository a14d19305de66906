// Package httpapi exposes the can-drive service over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"candrive/internal/auth"
	"candrive/internal/drive"
	"candrive/internal/httpmiddleware"
	"candrive/internal/metrics"
)

// Config carries the HTTP-facing settings.
type Config struct {
	SigningKey      string
	Issuer          string
	AccessTTL       time.Duration
	RateLimitPerMin int
	CORSOrigins     []string
	// ReportErrors sends 5xx errors to rollbar.
	ReportErrors bool
}

// Check reports whether a dependency is reachable.
type Check func(ctx context.Context) bool

// Server holds the handler dependencies.
type Server struct {
	svc    *drive.Service
	cfg    Config
	checks map[string]Check
}

// NewRouter builds the gin engine with every route mounted.
func NewRouter(svc *drive.Service, cfg Config, checks map[string]Check) *gin.Engine {
	registerValidators()
	s := &Server{svc: svc, cfg: cfg, checks: checks}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger("/healthz", "/metrics"))
	r.Use(metrics.Middleware())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(securityHeaders())

	limited := httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware()
	admin := auth.AdminAuth(cfg.SigningKey, cfg.Issuer)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	api := r.Group("/api")
	api.POST("/auth/login", limited, s.login)
	api.POST("/auth/change-password", limited, s.changePassword)

	api.GET("/events", admin, s.listEvents)
	api.POST("/events", admin, s.createEvent)
	api.GET("/events/current", s.currentEvent)

	evt := api.Group("/events/:id", s.eventScope())
	evt.POST("/activate", admin, s.activateEvent)
	evt.DELETE("/reset", admin, s.resetEvent)

	evt.GET("/students", admin, s.listStudents)
	evt.POST("/students", admin, s.createStudent)
	evt.GET("/students/search", s.searchStudents)
	evt.POST("/students/verify", limited, s.verifyStudent)
	evt.GET("/students/:studentId", admin, s.getStudent)
	evt.PUT("/students/:studentId", admin, s.updateStudent)
	evt.DELETE("/students/:studentId", admin, s.deleteStudent)
	evt.GET("/teachers", admin, s.listTeachers)
	evt.POST("/teachers", admin, s.createTeacher)
	evt.POST("/upload-roster", admin, s.uploadRoster)
	evt.POST("/upload-teachers", admin, s.uploadTeachers)

	evt.GET("/map-reservations", s.listReservations)
	evt.POST("/map-reservations", limited, s.createReservation)
	evt.GET("/map-reservations/export.csv", admin, s.exportReservations)
	evt.POST("/map-reservations/import", admin, s.importReservations)
	evt.PUT("/map-reservations/:reservationId", limited, auth.OptionalAuth(cfg.SigningKey, cfg.Issuer), s.updateReservation)
	evt.DELETE("/map-reservations/:reservationId", admin, s.deleteReservation)

	evt.GET("/donations", admin, s.listDonations)
	evt.POST("/donations", admin, s.recordDonation)

	evt.GET("/leaderboard", s.leaderboard)
	evt.GET("/leaderboard/export.csv", admin, s.exportLeaderboard)
	evt.GET("/daily-donors", s.dailyDonors)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       24 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.checks {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
