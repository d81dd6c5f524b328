// Package api exposes the HTTP interface for the crawl service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagemill/pagemill/internal/config"
	"github.com/pagemill/pagemill/internal/crawl"
	"github.com/pagemill/pagemill/internal/metrics"
)

// CrawlRunner drives crawl and scrape operations.
type CrawlRunner interface {
	RunCrawl(ctx context.Context, siteID, seedURL string, opts crawl.CrawlOptions) (crawl.Summary, error)
	ScrapePage(ctx context.Context, siteID string, req crawl.ScrapeRequest) (crawl.PageRecord, error)
}

// SessionReader serves session and page reads.
type SessionReader interface {
	GetSession(ctx context.Context, siteID string) (crawl.CrawlSession, error)
	ListPages(ctx context.Context, siteID string) ([]crawl.PageRecord, error)
}

// Server wires HTTP handlers to the controller and stores.
type Server struct {
	router chi.Router
	runner CrawlRunner
	reader SessionReader
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(runner CrawlRunner, reader SessionReader, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		reader: reader,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/sites/{site_id}", func(r chi.Router) {
			r.Post("/crawl", s.startCrawl)
			r.Post("/scrape", s.scrapePage)
			r.Get("/session", s.getSession)
			r.Get("/pages", s.listPages)
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type crawlRequest struct {
	SeedURL       string   `json:"seed_url"`
	PageLimit     *int     `json:"page_limit"`
	ExcludePaths  []string `json:"exclude_paths"`
	RunClassifier bool     `json:"run_classifier"`
}

// startCrawl accepts a crawl request and runs it in the background. The
// session row is the progress surface; poll GET /session for the outcome.
func (s *Server) startCrawl(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "site_id")
	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.SeedURL == "" {
		s.writeError(w, http.StatusBadRequest, "seed_url is required")
		return
	}
	limit := s.cfg.Crawl.PageLimitDefault
	if req.PageLimit != nil && *req.PageLimit > 0 {
		limit = *req.PageLimit
	}
	opts := crawl.CrawlOptions{
		PageLimit:     limit,
		ExcludePaths:  req.ExcludePaths,
		RunClassifier: req.RunClassifier,
	}

	// Detached from the request context: the crawl outlives this response.
	go func() {
		if _, err := s.runner.RunCrawl(context.Background(), siteID, req.SeedURL, opts); err != nil {
			s.logger.Error("background crawl failed",
				zap.String("site_id", siteID),
				zap.Error(err),
			)
		}
	}()

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"site_id":    siteID,
		"status":     string(crawl.StatusCrawling),
		"page_limit": limit,
	})
}

type scrapeRequest struct {
	URL             string   `json:"url"`
	OnlyMainContent bool     `json:"only_main_content"`
	ExcludeTags     []string `json:"exclude_tags"`
	TimeoutSeconds  int      `json:"timeout_seconds"`
}

func (s *Server) scrapePage(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "site_id")
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	timeout := s.cfg.ScrapeTimeout()
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	record, err := s.runner.ScrapePage(r.Context(), siteID, crawl.ScrapeRequest{
		URL:             req.URL,
		OnlyMainContent: req.OnlyMainContent,
		ExcludeTags:     req.ExcludeTags,
		Timeout:         timeout,
	})
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "site_id")
	session, err := s.reader.GetSession(r.Context(), siteID)
	if err != nil {
		if errors.Is(err, crawl.ErrSessionNotFound) {
			s.writeError(w, http.StatusNotFound, "session not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to fetch session")
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	siteID := chi.URLParam(r, "site_id")
	pages, err := s.reader.ListPages(r.Context(), siteID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to fetch pages")
		return
	}
	if pages == nil {
		pages = []crawl.PageRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"site_id": siteID,
		"count":   len(pages),
		"pages":   pages,
	})
}

type requestIDKey struct{}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
