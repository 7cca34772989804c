// Package http exposes the budget over a JSON API. Handlers validate
// payloads up front and translate them into reducer actions; reads come
// straight from the store or the derived-view functions.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"budgetd/internal/cache"
	"budgetd/internal/log"
	"budgetd/internal/store"
	"budgetd/internal/views"
)

// ResetFunc performs a full reset: default state in memory, cleared local
// snapshot, cleared remote document when sync is active.
type ResetFunc func(ctx context.Context) error

type monthView struct {
	Year         int                 `json:"year"`
	Month        int                 `json:"month"`
	Totals       views.MonthSummary  `json:"totals"`
	Transactions []views.Transaction `json:"transactions"`
}

type Server struct {
	http.Server
	store       *store.Store
	reset       ResetFunc
	logger      *log.Logger
	rateLimiter *rateLimiter

	// Month views are immutable per (month, revision), so they cache well.
	monthCache *cache.LRUCache[monthView]

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, st *store.Store, reset ResetFunc, logger *log.Logger, cacheSize int, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       st,
		reset:       reset,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newRateLimiter(),
		monthCache:  cache.NewLRUCache[monthView](cacheSize, cacheTTL),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/state", s.withMiddleware(s.handleGetState))
	mux.HandleFunc("POST /api/balance", s.withMiddleware(s.handleUpdateBalance))

	mux.HandleFunc("POST /api/bills", s.withMiddleware(s.handleCreateBill))
	mux.HandleFunc("PUT /api/bills/{id}", s.withMiddleware(s.handleUpdateBill))
	mux.HandleFunc("DELETE /api/bills/{id}", s.withMiddleware(s.handleDeleteBill))
	mux.HandleFunc("POST /api/bills/{id}/toggle", s.withMiddleware(s.handleToggleBill))

	mux.HandleFunc("POST /api/incomes", s.withMiddleware(s.handleCreateIncome))
	mux.HandleFunc("PUT /api/incomes/{id}", s.withMiddleware(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /api/incomes/{id}", s.withMiddleware(s.handleDeleteIncome))
	mux.HandleFunc("POST /api/incomes/{id}/toggle", s.withMiddleware(s.handleToggleIncome))

	mux.HandleFunc("POST /api/debts", s.withMiddleware(s.handleCreateDebt))
	mux.HandleFunc("PUT /api/debts/{id}", s.withMiddleware(s.handleUpdateDebt))
	mux.HandleFunc("DELETE /api/debts/{id}", s.withMiddleware(s.handleDeleteDebt))
	mux.HandleFunc("POST /api/debts/focus", s.withMiddleware(s.handleFocusDebt))

	mux.HandleFunc("POST /api/tasks", s.withMiddleware(s.handleCreateTask))
	mux.HandleFunc("PUT /api/tasks/{id}", s.withMiddleware(s.handleUpdateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", s.withMiddleware(s.handleDeleteTask))
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.withMiddleware(s.handleToggleTask))

	mux.HandleFunc("POST /api/months/generate", s.withMiddleware(s.handleGenerateMonth))
	mux.HandleFunc("POST /api/reset", s.withMiddleware(s.handleReset))

	mux.HandleFunc("GET /api/views/paycheck", s.withMiddleware(s.handlePaycheckView))
	mux.HandleFunc("GET /api/views/months/{year}/{month}", s.withMiddleware(s.handleMonthView))

	return s
}

// RegisterCaches adds the server's caches to a cleanup manager.
func (s *Server) RegisterCaches(m *cache.Manager) {
	m.Register(s.monthCache)
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withMiddleware adds request logging, request ids, security headers and
// rate limiting on mutations.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.logger.DebugContext(ctx, "Request started",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldClientIP, clientIP)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
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

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
