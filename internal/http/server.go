// Package http serves the dashboard: the index page, report and upload
// partials, workbook ingestion and batch management.
package http

import (
	"context"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/migueandres1/ORS-SER-dashboard/internal/amqp"
	"github.com/migueandres1/ORS-SER-dashboard/internal/core"
	applog "github.com/migueandres1/ORS-SER-dashboard/internal/log"
	appweb "github.com/migueandres1/ORS-SER-dashboard/web"
)

// Ports toward the store, the ingestor and the optional event bus.
type (
	// FactReader loads the fact table for a render cycle.
	FactReader interface {
		LoadAllFacts(ctx context.Context) ([]core.FactRow, error)
	}

	// UploadManager lists and deletes upload batches.
	UploadManager interface {
		ListUploads(ctx context.Context) ([]core.Upload, error)
		DeleteUpload(ctx context.Context, uploadID int64) error
	}

	// WorkbookIngestor stores an uploaded workbook as a new batch.
	WorkbookIngestor interface {
		Ingest(ctx context.Context, filename string, r io.Reader) (uploadID int64, rows int, err error)
	}

	// EventPublisher fans out batch events. May be nil when AMQP is not
	// configured; publishing is best-effort and never fails a request.
	EventPublisher interface {
		Publish(ctx context.Context, event amqp.BatchEvent) error
	}
)

type Server struct {
	http.Server
	templates      *template.Template
	facts          FactReader
	uploads        UploadManager
	ingestor       WorkbookIngestor
	publisher      EventPublisher
	maxUploadBytes int64
	rateLimiter    *rateLimiter
	shutdownOnce   sync.Once
}

// Options tunes the server beyond its collaborators.
type Options struct {
	MaxUploadBytes int64
	Publisher      EventPublisher
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, facts FactReader, uploads UploadManager, ingestor WorkbookIngestor, opts Options) *Server {
	mux := http.NewServeMux()

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}

	requestLogger := applog.New(applog.Config{Component: applog.ComponentHTTP})

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: applog.Middleware(requestLogger)(mux),
		},
		facts:          facts,
		uploads:        uploads,
		ingestor:       ingestor,
		publisher:      opts.Publisher,
		maxUploadBytes: maxUpload,
		rateLimiter:    newRateLimiter(),
	}

	t, err := template.New("").Funcs(template.FuncMap{
		"money":   formatMoney,
		"percent": formatPercent,
	}).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/uploads", s.withSecurityHeaders(s.handleUpload))
	mux.HandleFunc("/uploads/delete", s.withSecurityHeaders(s.handleDeleteUpload))
	mux.HandleFunc("/report/export", s.withSecurityHeaders(s.handleReportExport))
	// UI partials
	mux.HandleFunc("/ui/report", s.withSecurityHeaders(s.handleReportPartial))
	mux.HandleFunc("/ui/uploads", s.withSecurityHeaders(s.handleUploadsPartial))

	return s
}

// Shutdown stops the rate limiter cleanup and the HTTP server.
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

// withSecurityHeaders adds security headers, rate limiting on writes, and
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

		requestID := generateRequestID()
		ctx := r.Context()
		logger := applog.FromContext(ctx)

		logger.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		logger.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
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

// publishEvent is best-effort: a dead broker must never fail an ingest or
// delete that already committed.
func (s *Server) publishEvent(ctx context.Context, event amqp.BatchEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish batch event",
			"error", err,
			"kind", event.Kind,
			"upload_id", event.UploadID)
	}
}
