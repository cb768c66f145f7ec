// Package server exposes the search and evaluation pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sebc-dev/alexandria/internal/auth"
	"github.com/sebc-dev/alexandria/internal/evaluation"
	"github.com/sebc-dev/alexandria/internal/search"
)

// Searcher is the search pipeline entry point consumed by the HTTP layer.
type Searcher interface {
	Search(ctx context.Context, req search.Request) ([]search.Result, error)
}

// Evaluator runs one golden-set evaluation.
type Evaluator interface {
	Evaluate(ctx context.Context, label string) (*evaluation.Summary, error)
}

// HTTPServer serves the JSON API for search and evaluation runs.
type HTTPServer struct {
	server    *http.Server
	router    *chi.Mux
	logger    *slog.Logger
	searcher  Searcher
	evaluator Evaluator
}

// HTTPServerConfig holds configuration for the HTTP server
type HTTPServerConfig struct {
	Port           int
	APIKey         string
	Logger         *slog.Logger
	AllowedOrigins []string // CORS allowed origins
}

// NewHTTPServer creates the HTTP server and wires all routes.
func NewHTTPServer(cfg HTTPServerConfig, searcher Searcher, evaluator Evaluator) *HTTPServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &HTTPServer{
		logger:    logger,
		searcher:  searcher,
		evaluator: evaluator,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLoggingMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.Get("/healthz", healthCheckHandler())
	router.Get("/readyz", readinessCheckHandler())
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	router.Route("/v1", func(r chi.Router) {
		r.Use(auth.APIKeyMiddleware(cfg.APIKey))
		r.Post("/search", s.handleSearch)
		r.Post("/eval/run", s.handleEvalRun)
	})

	s.router = router
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // evaluation runs are long
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server
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

// searchRequestBody is the JSON shape of POST /v1/search.
type searchRequestBody struct {
	Query       string   `json:"query"`
	MaxResults  int      `json:"max_results"`
	Source      *string  `json:"source,omitempty"`
	SectionPath *string  `json:"section_path,omitempty"`
	Version     *string  `json:"version,omitempty"`
	ContentType *string  `json:"content_type,omitempty"`
	MinScore    *float64 `json:"min_score,omitempty"`
}

type searchResponseBody struct {
	Results []search.Result `json:"results"`
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body searchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.MaxResults == 0 {
		body.MaxResults = 10
	}

	var opts []search.RequestOption
	if body.Source != nil {
		opts = append(opts, search.WithSource(*body.Source))
	}
	if body.SectionPath != nil {
		opts = append(opts, search.WithSectionPath(*body.SectionPath))
	}
	if body.Version != nil {
		opts = append(opts, search.WithVersion(*body.Version))
	}
	if body.ContentType != nil {
		opts = append(opts, search.WithContentType(*body.ContentType))
	}
	if body.MinScore != nil {
		opts = append(opts, search.WithMinScore(*body.MinScore))
	}

	req, err := search.NewRequest(body.Query, body.MaxResults, opts...)
	if err != nil {
		observeSearch("invalid", time.Since(start))
		writeError(w, http.StatusBadRequest, err)
		return
	}

	results, err := s.searcher.Search(r.Context(), req)
	if err != nil {
		observeSearch("error", time.Since(start))
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	observeSearch("ok", time.Since(start))
	writeJSON(w, http.StatusOK, searchResponseBody{Results: results})
}

// evalRequestBody is the JSON shape of POST /v1/eval/run.
type evalRequestBody struct {
	Label string `json:"label"`
}

func (s *HTTPServer) handleEvalRun(w http.ResponseWriter, r *http.Request) {
	var body evalRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if body.Label == "" {
		body.Label = "adhoc"
	}

	summary, err := s.evaluator.Evaluate(r.Context(), body.Label)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	if errors.Is(err, search.ErrInvalidRequest) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// requestLoggingMiddleware logs HTTP requests
func requestLoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start)

			logger.Info("HTTP request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", duration,
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

			// Check if origin is allowed
			allowed := false
			if len(allowedOrigins) == 0 {
				// If no origins specified, allow all in development
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
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, X-API-Key")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// healthCheckHandler returns a handler for the /healthz endpoint
func healthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// readinessCheckHandler returns a handler for the /readyz endpoint
func readinessCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
