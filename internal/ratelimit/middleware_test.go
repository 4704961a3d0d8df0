package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"feedlink/pkg/platform/middleware/metadata"
)

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (Result, error) {
	return Result{}, errors.New("redis: connection refused")
}

func newHandler(l Limiter, p Policy) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return metadata.ClientMetadata(Middleware(l, p, logger)(ok))
}

func get(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/donations/x/confirm", nil)
	req.Header.Set("X-Forwarded-For", ip)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestMiddlewareLimitsPerIP(t *testing.T) {
	h := newHandler(NewInMemory(), Policy{Name: "confirm", Limit: 2, Window: time.Minute})

	rr := get(h, "203.0.113.7")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, get(h, "203.0.113.7").Code)

	rr = get(h, "203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), `"error":"rate_limited"`)

	assert.Equal(t, http.StatusNoContent, get(h, "198.51.100.1").Code)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	h := newHandler(failingLimiter{}, Policy{Name: "confirm", Limit: 1, Window: time.Minute})
	for range 3 {
		assert.Equal(t, http.StatusNoContent, get(h, "203.0.113.7").Code)
	}
}
