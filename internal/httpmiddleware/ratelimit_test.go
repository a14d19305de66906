package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func newLimiter(capacity, perMinute int) (*TokenBucket, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	l := NewTokenBucket(capacity, perMinute)
	l.now = clock.now
	return l, clock
}

func TestAllowBurstThenRefill(t *testing.T) {
	l, clock := newLimiter(3, 60)
	for i := 0; i < 3; i++ {
		ok, _ := l.allow("a")
		require.True(t, ok, "request %d", i)
	}
	ok, wait := l.allow("a")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	// one token per second at 60/min
	clock.t = clock.t.Add(500 * time.Millisecond)
	ok, _ = l.allow("a")
	assert.False(t, ok)
	clock.t = clock.t.Add(600 * time.Millisecond)
	ok, _ = l.allow("a")
	assert.True(t, ok)

	ok, _ = l.allow("b")
	assert.True(t, ok)
}

func TestIdleBucketsEvicted(t *testing.T) {
	l, clock := newLimiter(2, 60)
	l.allow("a")
	l.allow("b")
	assert.Equal(t, 2, l.Size())

	clock.t = clock.t.Add(11 * time.Minute)
	l.allow("c")
	assert.Equal(t, 1, l.Size())
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l, _ := newLimiter(1, 1)
	r := gin.New()
	r.Use(l.GinMiddleware())
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())
}
