package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newRateLimitRouter(t *testing.T, r rate.Limit, b int) *gin.Engine {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng := gin.New()
	eng.Use(RateLimit(ctx, r, b))
	eng.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return eng
}

func TestRateLimit_AllowsFirst(t *testing.T) {
	r := newRateLimitRouter(t, 100, 5)
	assert.Equal(t, http.StatusOK, pingFrom(r, "10.0.0.1"))
}

func TestRateLimit_Burst(t *testing.T) {
	r := newRateLimitRouter(t, 0.001, 3) // near-zero refill so we exhaust quickly
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, pingFrom(r, "10.0.1.1"), "request %d should be allowed", i+1)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Real-IP", "10.0.1.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimit_PerIP(t *testing.T) {
	r := newRateLimitRouter(t, 0.001, 1)

	for _, ip := range []string{"10.1.1.1", "10.1.1.2"} {
		assert.Equal(t, http.StatusOK, pingFrom(r, ip), "first request from %s should be OK", ip)
	}
	assert.Equal(t, http.StatusTooManyRequests, pingFrom(r, "10.1.1.1"))
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	r := newRateLimitRouter(t, 0, 0)
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusOK, pingFrom(r, "10.2.2.2"))
	}
}

func TestLimiterSet_SweepDropsIdle(t *testing.T) {
	now := time.Unix(1000, 0)
	set := &limiterSet{r: 1, b: 1, byIP: make(map[string]*ipLimiter), nowFn: func() time.Time { return now }}

	set.allow("10.0.0.1")
	now = now.Add(time.Hour)
	set.allow("10.0.0.2")
	set.sweep(now.Add(-limiterIdle))

	assert.NotContains(t, set.byIP, "10.0.0.1")
	assert.Contains(t, set.byIP, "10.0.0.2")
}
