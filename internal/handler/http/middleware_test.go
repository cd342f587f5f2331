package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/simplesagar/dub/pkg/logger"

	"github.com/stretchr/testify/assert"
)

// fakeLimiter allows the first n calls per key.
type fakeLimiter struct {
	n     int
	seen  map[string]int
	err   error
	reset time.Time
}

func newFakeLimiter(n int) *fakeLimiter {
	return &fakeLimiter{n: n, seen: map[string]int{}, reset: time.Now().Add(30 * time.Second)}
}

func (f *fakeLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	if f.err != nil {
		return false, 0, time.Time{}, f.err
	}
	f.seen[key]++
	remaining := max(f.n-f.seen[key], 0)
	return f.seen[key] <= f.n, remaining, f.reset, nil
}

func (f *fakeLimiter) MaxRequests() int { return f.n }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	// Arrange
	limiter := newFakeLimiter(2)
	handler := RateLimitMiddleware(limiter, logger.Discard())(okHandler())

	call := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", target, nil))
		return w
	}

	// Act & Assert
	assert.Equal(t, http.StatusOK, call("/api/links?workspaceId=ws_1").Code)
	w := call("/api/links?workspaceId=ws_1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = call("/api/links?workspaceId=ws_1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// switching the workspace in the query does not reset the budget
	assert.Equal(t, http.StatusTooManyRequests, call("/api/links?workspaceId=ws_2").Code)
	assert.Equal(t, http.StatusTooManyRequests, call("/api/links?projectId=ws_3").Code)
}

func TestRateLimitMiddleware_SeparateClients(t *testing.T) {
	limiter := newFakeLimiter(1)
	handler := RateLimitMiddleware(limiter, logger.Discard())(okHandler())

	call := func(remoteAddr string) int {
		req := httptest.NewRequest("GET", "/api/links?workspaceId=ws_1", nil)
		req.RemoteAddr = remoteAddr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("198.51.100.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, call("198.51.100.1:5001"))
	// another client sharing the workspace keeps its own budget
	assert.Equal(t, http.StatusOK, call("198.51.100.2:5000"))
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	limiter := newFakeLimiter(1)
	limiter.err = errors.New("redis: connection refused")
	handler := RateLimitMiddleware(limiter, logger.Discard())(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/tags?workspaceId=ws_1", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestRateLimitKey(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		remoteAddr string
		header     string
		want       string
	}{
		{"Remote address", "/api/links", "192.0.2.10:4321", "", "ip:192.0.2.10"},
		{"Workspace query ignored", "/api/links?workspaceId=ws_1", "192.0.2.10:4321", "", "ip:192.0.2.10"},
		{"Forwarded client", "/api/workspaces", "10.0.0.1:80", "203.0.113.7, 10.0.0.1", "ip:203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.target, nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				req.Header.Set("X-Forwarded-For", tt.header)
			}
			assert.Equal(t, tt.want, rateLimitKey(req))
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	}))

	t.Run("Reuses caller ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})

	t.Run("Generates ID", func(t *testing.T) {
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(logger.Discard())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/links", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), CodeInternal)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	handler := CORSMiddleware(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/api/links", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestSimplifyEndpoint(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/links", "/api/links"},
		{"/api/links/count", "/api/links/count"},
		{"/api/links/clx123", "/api/links/:id"},
		{"/api/workspaces/ws_1", "/api/workspaces/:id"},
		{"/api/unknown/thing", "/api/*"},
		{"/health/live", "/health/live"},
		{"/abc", "/:key"},
		{"/blog/post", "/:key"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, simplifyEndpoint(tt.path))
		})
	}
}
