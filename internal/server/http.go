// Package server exposes the application over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Luizbragga/rag-faq-bot/internal/auth"
	"github.com/Luizbragga/rag-faq-bot/internal/ingestion"
	"github.com/Luizbragga/rag-faq-bot/internal/repository"
	"github.com/Luizbragga/rag-faq-bot/internal/service"
)

// HTTPServer hosts the JSON API.
type HTTPServer struct {
	server *http.Server
	router *chi.Mux
	logger *slog.Logger

	search   *service.SearchService
	chat     *service.ChatService
	feedback *service.FeedbackService
	metrics  *service.MetricsService
	backfill *service.BackfillService
	pipeline *ingestion.Pipeline
	docs     repository.DocumentRepository

	jwt           *auth.JWTManager
	defaultTenant string
	ready         func(ctx context.Context) error
}

// HTTPServerConfig holds configuration and dependencies for the HTTP server.
type HTTPServerConfig struct {
	Port           int
	Logger         *slog.Logger
	AllowedOrigins []string

	Search   *service.SearchService
	Chat     *service.ChatService
	Feedback *service.FeedbackService
	Metrics  *service.MetricsService
	Backfill *service.BackfillService
	Pipeline *ingestion.Pipeline
	Docs     repository.DocumentRepository

	// Auth is optional; when set, /api routes require a tenant API key.
	Auth *auth.APIKeyAuth

	// JWT is optional; when set, POST /api/auth/token issues tenant tokens.
	JWT *auth.JWTManager

	// AdminAPIKey guards the backfill endpoint.
	AdminAPIKey string

	// DefaultTenant is used when a request names no tenant.
	DefaultTenant string

	// Ready reports whether downstream dependencies are reachable.
	Ready func(ctx context.Context) error
}

// NewHTTPServer creates the HTTP server and mounts all routes.
func NewHTTPServer(cfg HTTPServerConfig) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{
		logger:        logger,
		search:        cfg.Search,
		chat:          cfg.Chat,
		feedback:      cfg.Feedback,
		metrics:       cfg.Metrics,
		backfill:      cfg.Backfill,
		pipeline:      cfg.Pipeline,
		docs:          cfg.Docs,
		jwt:           cfg.JWT,
		defaultTenant: cfg.DefaultTenant,
		ready:         cfg.Ready,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))
	router.Use(metricsMiddleware)

	router.Get("/healthz", s.handleHealthz)
	router.Get("/readyz", s.handleReadyz)
	router.Handle("/metrics", metricsHandler())

	router.Route("/api", func(r chi.Router) {
		switch {
		case cfg.Auth != nil && s.jwt != nil:
			r.Use(auth.APIKeyOrBearer(cfg.Auth, s.jwt))
		case cfg.Auth != nil:
			r.Use(cfg.Auth.Middleware)
		}

		if s.jwt != nil {
			r.Post("/auth/token", s.handleAuthToken)
		}

		r.Post("/search", s.handleSearch)
		r.Post("/chat", s.handleChat)
		r.Post("/feedback", s.handleFeedback)
		r.Get("/health", s.handleReadyz)
		r.Get("/metrics/overview", s.handleMetricsOverview)
		r.Get("/logs/recent", s.handleRecentLogs)

		r.Route("/ingest/text", func(r chi.Router) {
			r.Post("/", s.handleIngestText)
			r.Get("/", s.handleListDocuments)
			r.Delete("/", s.handleDeleteDocument)
		})

		r.With(auth.RequireAdmin(cfg.AdminAPIKey)).
			Post("/embeddings/backfill", s.handleBackfill)
	})

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server and blocks until it stops.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", "address", s.server.Addr)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying chi router, used by tests.
func (s *HTTPServer) Router() *chi.Mux {
	return s.router
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "status": "ready"})
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote_addr", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// corsMiddleware handles CORS headers
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 {
				// No origins configured means development mode
				allowed = true
				origin = "*"
			} else {
				for _, o := range allowedOrigins {
					if o == "*" || o == origin {
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, X-Api-Key")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": msg})
}
