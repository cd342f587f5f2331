package http

import (
	"net/http"
	"time"

	"github.com/simplesagar/dub/pkg/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers every route and wraps them in the middleware
// chain. limiter may be nil to disable rate limiting.
//
// Order (outside-in): Recovery, Logging, RequestID, Metrics, CORS, then
// Timeout and RateLimit on /api/ only.
func NewRouter(h *Handler, log *logger.Logger, limiter RateLimiter, requestTimeout time.Duration) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/links", h.CreateLink)
	api.HandleFunc("GET /api/links", h.ListLinks)
	api.HandleFunc("POST /api/links/bulk", h.BulkCreateLinks)
	api.HandleFunc("GET /api/links/count", h.CountLinks)
	api.HandleFunc("GET /api/links/info", h.LinkInfo)
	api.HandleFunc("PATCH /api/links/{id}", h.UpdateLink)
	api.HandleFunc("PUT /api/links/{id}", h.UpdateLink)
	api.HandleFunc("POST /api/tags", h.CreateTag)
	api.HandleFunc("GET /api/tags", h.ListTags)
	api.HandleFunc("POST /api/workspaces", h.CreateWorkspace)
	api.HandleFunc("GET /api/workspaces/{id}", h.GetWorkspace)
	api.HandleFunc("GET /api/qr", h.QRCode)

	apiChain := []func(http.Handler) http.Handler{TimeoutMiddleware(requestTimeout)}
	if limiter != nil {
		apiChain = append(apiChain, RateLimitMiddleware(limiter, log))
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", Chain(apiChain...)(api))
	mux.HandleFunc("GET /health/live", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Short link redirect (catch-all). Registered without a method so it
	// never conflicts with the method-scoped routes above.
	mux.HandleFunc("/", h.Redirect)

	return Chain(
		RecoveryMiddleware(log),
		LoggingMiddleware(log),
		RequestIDMiddleware,
		MetricsMiddleware,
		CORSMiddleware,
	)(mux)
}
