// Package devserver serves the build output during development, either statically
// or by proxying to a running app, and pushes reload signals to connected browsers.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/logfields"
	"git.home.luguber.info/inful/assetbuilder/internal/metrics"
)

// DefaultMetricsPath is where metrics are exposed when no path is configured.
const DefaultMetricsPath = "/metrics"

// Server is the development HTTP server.
type Server struct {
	backend     Backend
	hub         *Hub
	liveReload  bool
	logger      *slog.Logger
	recorder    metrics.Recorder
	metricsPath string
	metrics     http.Handler

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRecorder counts reload broadcasts on rec.
func WithRecorder(rec metrics.Recorder) Option {
	return func(s *Server) { s.recorder = rec }
}

// WithMetrics exposes h at path.
func WithMetrics(path string, h http.Handler) Option {
	return func(s *Server) {
		if path == "" {
			path = DefaultMetricsPath
		}
		s.metricsPath, s.metrics = path, h
	}
}

// WithoutLiveReload disables the SSE endpoint and script injection.
func WithoutLiveReload() Option {
	return func(s *Server) { s.liveReload = false }
}

// New creates a server for backend.
func New(backend Backend, opts ...Option) *Server {
	s := &Server{backend: backend, liveReload: true, logger: slog.Default(), recorder: metrics.NoopRecorder{}}
	for _, o := range opts {
		o(s)
	}
	s.hub = NewHub(s.recorder, s.logger)
	return s
}

// Handler returns the complete request handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	var site http.Handler
	if s.backend.Proxied() {
		site = s.proxy()
	} else {
		site = http.FileServer(http.Dir(s.backend.StaticRoot))
	}
	if s.liveReload {
		mux.Handle("/livereload", s.hub)
		mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			if _, err := w.Write([]byte(Script)); err != nil {
				s.logger.Error("failed to write livereload script", logfields.Error(err))
			}
		})
		site = injectLiveReload(site)
	}
	if s.metrics != nil {
		mux.Handle(s.metricsPath, s.metrics)
	}
	mux.Handle("/", site)
	return mux
}

func (s *Server) proxy() http.Handler {
	target := s.backend.Proxy
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(target)
			r.SetXForwarded()
			// Bodies must stay uncompressed for script injection.
			r.Out.Header.Del("Accept-Encoding")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.Warn("Proxy request failed", logfields.Path(r.URL.Path), logfields.Error(err))
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		},
	}
}

// Start binds the configured port and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.backend.Port))
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryServer, "dev server bind failed").
			WithContext("port", s.backend.Port).Build()
	}
	return s.StartWithListener(ctx, ln)
}

// StartWithListener serves on ln until ctx is done.
func (s *Server) StartWithListener(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		_ = ln.Close()
		return ferrors.ServerError("dev server already started").Build()
	}
	// No write timeout: SSE connections are long-lived.
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 300 * time.Second}
	s.ln = ln
	srv := s.srv
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Dev server error", logfields.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Dev server shutdown", logfields.Error(err))
		}
	}()

	attrs := []any{slog.String("addr", ln.Addr().String()), slog.Bool("livereload", s.liveReload)}
	if s.backend.Proxied() {
		attrs = append(attrs, slog.String("proxy", s.backend.Proxy.String()))
	} else {
		attrs = append(attrs, logfields.Path(s.backend.StaticRoot))
	}
	s.logger.Info("Dev server started", attrs...)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Reload tells connected browsers to refresh.
func (s *Server) Reload() {
	if s.liveReload {
		s.hub.Reload()
	}
}

// Shutdown closes live reload streams and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Shutdown()
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("dev server shutdown: %w", err)
	}
	s.logger.Info("Dev server stopped")
	return nil
}
