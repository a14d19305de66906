package httpapi

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const eventIDKey = "event_id"

// eventScope resolves the :id path segment, including "current", before any
// event route runs.
func (s *Server) eventScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := s.svc.ResolveEventID(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.fail(c, err)
			c.Abort()
			return
		}
		c.Set(eventIDKey, id)
		c.Next()
	}
}

func eventID(c *gin.Context) string {
	return c.GetString(eventIDKey)
}

func requestLogger(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]bool, len(skip))
	for _, p := range skip {
		skipped[p] = true
	}
	return func(c *gin.Context) {
		if skipped[c.Request.URL.Path] {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		)
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
