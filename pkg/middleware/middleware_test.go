package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/datacollector/pkg/metrics"
	"github.com/wyfcoding/datacollector/pkg/ratelimit"
)

type fakeLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, _ ratelimit.Limit) (*ratelimit.Result, error) {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return nil, f.err
	}
	return &ratelimit.Result{Allowed: f.allowed, Remaining: 3, RetryAfter: 2 * time.Second}, nil
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping/:id", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	return r
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestGinLoggingMiddleware_SetsRequestID(t *testing.T) {
	r := newEngine(GinLoggingMiddleware())
	rec := serve(r, "/ping/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestGinRecoveryMiddleware(t *testing.T) {
	r := newEngine(GinLoggingMiddleware(), GinRecoveryMiddleware())
	rec := serve(r, "/panic")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_id")
}

func TestGinMetricsMiddleware(t *testing.T) {
	m := metrics.New("test")
	r := newEngine(GinMetricsMiddleware(m))

	serve(r, "/ping/1")
	serve(r, "/ping/2")
	serve(r, "/missing")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/ping/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("unmatched", "404")))
}

func TestRateLimitMiddleware(t *testing.T) {
	limit := ratelimit.PerSecond(1, 1)

	allow := &fakeLimiter{allowed: true}
	rec := serve(newEngine(RateLimitMiddleware(allow, limit)), "/ping/1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Remaining"))
	require.Len(t, allow.keys, 1)
	assert.Contains(t, allow.keys[0], "ratelimit:")

	deny := &fakeLimiter{allowed: false}
	rec = serve(newEngine(RateLimitMiddleware(deny, limit)), "/ping/1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	broken := &fakeLimiter{err: errors.New("redis down")}
	rec = serve(newEngine(RateLimitMiddleware(broken, limit)), "/ping/1")
	assert.Equal(t, http.StatusOK, rec.Code)
}
