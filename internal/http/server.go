// Package http exposes the shopping engine as a JSON API. Identity comes
// from the X-User-ID header set by the authenticating proxy; every handler
// scopes its queries to that user.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartcart/internal/cache"
	"smartcart/internal/core"
	"smartcart/internal/services"
)

type Server struct {
	http.Server

	lists     *services.ListService
	payments  *services.PaymentService
	analytics *services.AnalyticsService

	rateLimiter *rateLimiter

	// Per-user analytics caches, invalidated when a completion changes the
	// underlying aggregates.
	summaryCache *cache.LRUCache[core.AnalyticsSummary]
	historyCache *cache.LRUCache[[]core.ProductRecord]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and caches, returning a ready-to-run server.
func NewServer(addr string, lists *services.ListService, payments *services.PaymentService, analytics *services.AnalyticsService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		lists:        lists,
		payments:     payments,
		analytics:    analytics,
		rateLimiter:  newRateLimiter(),
		summaryCache: cache.NewLRUCache[core.AnalyticsSummary](500, 5*time.Minute),
		historyCache: cache.NewLRUCache[[]core.ProductRecord](1000, 5*time.Minute),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.historyCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/lists", s.withSecurityHeaders(s.handleCreateList))
	mux.HandleFunc("GET /api/lists", s.withSecurityHeaders(s.handleLists))
	mux.HandleFunc("GET /api/lists/active", s.withSecurityHeaders(s.handleActiveList))
	mux.HandleFunc("GET /api/lists/{id}", s.withSecurityHeaders(s.handleGetList))
	mux.HandleFunc("POST /api/lists/{id}/complete", s.withSecurityHeaders(s.handleCompleteList))
	mux.HandleFunc("POST /api/lists/{id}/cancel", s.withSecurityHeaders(s.handleCancelList))
	mux.HandleFunc("POST /api/lists/{id}/duplicate", s.withSecurityHeaders(s.handleDuplicateList))
	mux.HandleFunc("GET /api/lists/{id}/budget_status", s.withSecurityHeaders(s.handleBudgetStatus))
	mux.HandleFunc("POST /api/lists/{id}/payment_methods", s.withSecurityHeaders(s.handleAttachMethod))
	mux.HandleFunc("POST /api/lists/{id}/items", s.withSecurityHeaders(s.handleAddItem))

	mux.HandleFunc("PATCH /api/items/{id}", s.withSecurityHeaders(s.handleUpdateItem))
	mux.HandleFunc("POST /api/items/{id}/toggle_check", s.withSecurityHeaders(s.handleToggleItem))
	mux.HandleFunc("DELETE /api/items/{id}", s.withSecurityHeaders(s.handleRemoveItem))

	mux.HandleFunc("POST /api/payments", s.withSecurityHeaders(s.handleCreateMethod))
	mux.HandleFunc("GET /api/payments", s.withSecurityHeaders(s.handleListMethods))
	mux.HandleFunc("GET /api/payments/total_available", s.withSecurityHeaders(s.handleTotalAvailable))
	mux.HandleFunc("POST /api/payments/{id}/add_funds", s.withSecurityHeaders(s.handleAddFunds))
	mux.HandleFunc("DELETE /api/payments/{id}", s.withSecurityHeaders(s.handleDeactivateMethod))

	mux.HandleFunc("GET /api/analytics/summary", s.withSecurityHeaders(s.handleAnalyticsSummary))
	mux.HandleFunc("GET /api/shopping/product_history", s.withSecurityHeaders(s.handleProductHistory))

	mux.HandleFunc("GET /api/settings", s.withSecurityHeaders(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings/alert", s.withSecurityHeaders(s.handleUpdateAlert))

	return s
}

// Shutdown stops the server and its background cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, request ids and
// request logging.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)
		w.Header().Set("X-Request-ID", requestID)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		// Rate limit mutations only; reads stay cheap.
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		observeRequest(r.Method, r.URL.Path, rw.statusCode, duration)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds())
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// userID extracts the authenticated user from X-User-ID. Authentication
// itself happens upstream; a missing or malformed header is a 401 here.
func userID(r *http.Request) (int64, bool) {
	raw := r.Header.Get("X-User-ID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// invalidateAnalytics drops the user's cached aggregates after a completion
// changes what analytics would report.
func (s *Server) invalidateAnalytics(userID int64) {
	s.summaryCache.Delete(summaryCacheKey(userID))
	// Product history keys are per-query; the TTL bounds their staleness,
	// which matches how fresh price history needs to be.
}
