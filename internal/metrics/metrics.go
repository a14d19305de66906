// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "candrive",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "candrive",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	DonationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "candrive",
		Name:      "donations_recorded_total",
		Help:      "Donations recorded.",
	})

	CansRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "candrive",
		Name:      "cans_recorded_total",
		Help:      "Cans recorded across all donations.",
	})

	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "candrive",
		Name:      "reservation_conflicts_total",
		Help:      "Street claims rejected because another donor holds the street.",
	})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "candrive",
		Name:      "leaderboard_cache_lookups_total",
		Help:      "Leaderboard cache lookups by result.",
	}, []string{"result"})

	MilestonesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "candrive",
		Name:      "buyout_milestones_recorded_total",
		Help:      "Classes recorded as reaching the buyout threshold.",
	})
)

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
