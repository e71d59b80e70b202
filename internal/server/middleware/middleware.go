// Package middleware provides HTTP middleware for logging, panic recovery, CORS, metrics
// and bearer-token auth.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/logfields"
	"git.home.luguber.info/inful/sitepublisher/internal/metrics"
	"git.home.luguber.info/inful/sitepublisher/internal/observability"
)

// Chain returns a middleware wrapper that applies logging and panic recovery around a handler.
func Chain(logger *slog.Logger, adapter *errors.HTTPErrorAdapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return Logging(logger)(Recovery(logger, adapter)(next))
	}
}

// RequestContext copies chi's request id into the observability log context.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := chimw.GetReqID(r.Context()); id != "" {
			r = r.WithContext(observability.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// Logging logs method, path, status, duration, user agent, and remote addr.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			attrs := append(observability.Attrs(r.Context()),
				logfields.Method(r.Method),
				logfields.URLPath(r.URL.Path),
				logfields.Status(statusOf(ww)),
				logfields.DurationMS(float64(time.Since(start).Microseconds())/1000),
				logfields.UserAgent(r.UserAgent()),
				logfields.RemoteAddr(r.RemoteAddr))
			logger.LogAttrs(r.Context(), slog.LevelInfo, "HTTP request", attrs...)
		})
	}
}

// Recovery recovers from panics and writes a structured error response via the HTTPErrorAdapter.
func Recovery(logger *slog.Logger, adapter *errors.HTTPErrorAdapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("HTTP handler panic",
						slog.Any("panic", rec),
						logfields.URLPath(r.URL.Path),
						logfields.Method(r.Method),
						logfields.RemoteAddr(r.RemoteAddr))

					panicErr := errors.InternalError("internal server error").
						WithContext("path", r.URL.Path).
						WithContext("method", r.Method).
						Build()
					adapter.WriteErrorResponse(w, r, panicErr)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Metrics records request count and latency per route pattern.
func Metrics(recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			recorder.ObserveHTTPRequest(route, statusOf(ww), time.Since(start))
		})
	}
}

// statusOf defaults to 200 for handlers that wrote a body without calling WriteHeader.
func statusOf(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
