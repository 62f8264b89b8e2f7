package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lamvh/estate-harvester/internal/config"
	"github.com/lamvh/estate-harvester/internal/scraper"
	"github.com/lamvh/estate-harvester/internal/telemetry"
)

// Server wires HTTP handlers to the orchestrator.
type Server struct {
	router chi.Router
	orch   *scraper.Orchestrator
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(orch *scraper.Orchestrator, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		orch:   orch,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(telemetry.Middleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Handle("/metrics", telemetry.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/status", s.status)
		r.Route("/scrape", func(r chi.Router) {
			r.Post("/", s.startScrape)
			r.Post("/{source}", s.startSourceScrape)
		})
		r.Route("/scheduler", func(r chi.Router) {
			r.Post("/start", s.startScheduler)
			r.Post("/stop", s.stopScheduler)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusResponse struct {
	Stats            scraper.Stats          `json:"stats"`
	Sources          []scraper.SourceStatus `json:"sources"`
	SchedulerRunning bool                   `json:"scheduler_running"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{
		Stats:            s.orch.Stats(),
		Sources:          s.orch.SourceStatuses(),
		SchedulerRunning: s.orch.SchedulerActive(),
	})
}

type startScrapeRequest struct {
	MaxPagesPerSite int `json:"max_pages_per_site"`
}

func (s *Server) startScrape(w http.ResponseWriter, r *http.Request) {
	var req startScrapeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.MaxPagesPerSite < 0 {
		s.writeError(w, http.StatusBadRequest, "max_pages_per_site must be >= 0")
		return
	}
	maxPages := req.MaxPagesPerSite
	if maxPages == 0 {
		maxPages = s.cfg.Scraper.MaxPagesDefault
	}

	if !s.orch.TriggerRunAll(maxPages) {
		s.writeError(w, http.StatusConflict, "a scrape run is already in flight")
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"message":            "scraping started",
		"max_pages_per_site": maxPages,
	})
}

func (s *Server) startSourceScrape(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "source")
	if !s.orch.HasSource(name) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown source %q", name))
		return
	}

	var req startScrapeRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.MaxPagesPerSite < 0 {
		s.writeError(w, http.StatusBadRequest, "max_pages_per_site must be >= 0")
		return
	}
	maxPages := req.MaxPagesPerSite
	if maxPages == 0 {
		maxPages = s.cfg.Scraper.MaxPagesDefault
	}

	go func() {
		if _, err := s.orch.RunSingle(context.Background(), name, maxPages); err != nil {
			s.logger.Error("manual source run failed",
				zap.String("source", name), zap.Error(err))
		}
	}()
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"message":            "scraping started",
		"source":             name,
		"max_pages_per_site": maxPages,
	})
}

type schedulerStartRequest struct {
	IntervalHours int `json:"interval_hours"`
}

func (s *Server) startScheduler(w http.ResponseWriter, r *http.Request) {
	var req schedulerStartRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.IntervalHours < 0 {
		s.writeError(w, http.StatusBadRequest, "interval_hours must be >= 0")
		return
	}
	interval := s.cfg.ScrapeInterval()
	if req.IntervalHours > 0 {
		interval = time.Duration(req.IntervalHours) * time.Hour
	}

	s.orch.StartScheduler(interval, s.cfg.Scraper.MaxPagesDefault)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message":        "scheduler started",
		"interval_hours": interval.Hours(),
	})
}

func (s *Server) stopScheduler(w http.ResponseWriter, _ *http.Request) {
	s.orch.StopScheduler()
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "scheduler stopped"})
}

// decodeOptionalJSON fills req from the body, treating an empty body as all
// defaults.
func decodeOptionalJSON(r *http.Request, req any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(req)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

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
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
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

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

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
