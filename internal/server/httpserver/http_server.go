// Package httpserver assembles the publisher's chi router and runs the HTTP listener.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	derrors "git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/metrics"
	handlers "git.home.luguber.info/inful/sitepublisher/internal/server/handlers"
	smw "git.home.luguber.info/inful/sitepublisher/internal/server/middleware"
)

// Routes served by the publisher.
const (
	RoutePublish        = "/.netlify/functions/publish"
	RoutePublishAlias   = "/api/publish"
	RouteContent        = "/api/content"
	RouteHistory        = "/api/history"
	RouteHistoryEntry   = "/api/history/{publishID}"
	RouteHealth         = "/healthz"
	RouteMetrics        = "/metrics"
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 90 * time.Second
)

// Server owns the router and the listener.
type Server struct {
	opts         Options
	router       chi.Router
	httpServer   *http.Server
	listener     net.Listener
	errorAdapter *derrors.HTTPErrorAdapter

	publishHandlers    *handlers.PublishHandlers
	contentHandlers    *handlers.ContentHandlers
	historyHandlers    *handlers.HistoryHandlers
	monitoringHandlers *handlers.MonitoringHandlers
}

// New wires handlers and middleware. A nil pipeline serves every publish and content
// request with a configuration error.
func New(pipeline Pipeline, opts Options) *Server {
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	s := &Server{
		opts:         opts,
		errorAdapter: derrors.NewHTTPErrorAdapter(slog.Default()),
	}

	var (
		publisher handlers.Publisher
		fetcher   handlers.Fetcher
		status    handlers.StatusProvider
	)
	if pipeline != nil {
		publisher, fetcher, status = pipeline, pipeline, pipeline
	}
	s.publishHandlers = handlers.NewPublishHandlers(publisher, opts.MaxBodyBytes)
	s.contentHandlers = handlers.NewContentHandlers(fetcher)
	s.historyHandlers = handlers.NewHistoryHandlers(opts.History)
	s.monitoringHandlers = handlers.NewMonitoringHandlers(status)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, smw.RequestContext)
	r.Use(smw.Chain(slog.Default(), s.errorAdapter))
	r.Use(smw.Metrics(s.opts.Recorder))

	authEnabled := s.opts.Verifier != nil
	requireAuth := smw.RequireAuth(s.opts.Verifier, s.errorAdapter)

	r.Group(func(r chi.Router) {
		r.Use(smw.CORS([]string{http.MethodPost, http.MethodOptions}, authEnabled))
		r.Use(requireAuth)
		r.HandleFunc(RoutePublish, s.publishHandlers.HandlePublish)
		r.HandleFunc(RoutePublishAlias, s.publishHandlers.HandlePublish)
	})
	r.Group(func(r chi.Router) {
		r.Use(smw.CORS([]string{http.MethodGet, http.MethodOptions}, authEnabled))
		r.HandleFunc(RouteContent, s.contentHandlers.HandleGetContent)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get(RouteHistory, s.historyHandlers.HandleList)
			r.Options(RouteHistory, s.historyHandlers.HandleList)
			r.Get(RouteHistoryEntry, s.historyHandlers.HandleGet)
			r.Options(RouteHistoryEntry, s.historyHandlers.HandleGet)
		})
	})

	r.HandleFunc(RouteHealth, s.monitoringHandlers.HandleHealthCheck)
	if s.opts.Registry != nil {
		r.Handle(RouteMetrics, metrics.HTTPHandler(s.opts.Registry))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.errorAdapter.WriteErrorResponse(w, req, derrors.NotFoundError("route not found").
			WithContext("path", req.URL.Path).
			Build())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		s.errorAdapter.WriteErrorResponse(w, req, derrors.NewError(derrors.CategoryMethod, "Method not allowed").
			WithContext("method", req.Method).
			Build())
	})
	return r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Start binds the listen address and serves in the background. Bind errors are returned
// synchronously.
func (s *Server) Start(ctx context.Context) error {
	addr := s.opts.Addr
	if addr == "" {
		addr = ":8080"
	}
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("http startup failed: listen %s: %w", addr, err)
	}
	return s.startWithListener(ln)
}

func (s *Server) startWithListener(ln net.Listener) error {
	readTimeout, writeTimeout := s.opts.ReadTimeout, s.opts.WriteTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       2 * time.Minute,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()
	slog.Info("HTTP server started", slog.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}
