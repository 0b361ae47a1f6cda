package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapRequestLogger writes one entry per request. 4xx responses log at warn
// and 5xx at error, so degraded storage surfaces in alerts.
func ZapRequestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	readable := logger.Core().Enabled(zapcore.DebugLevel)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				elapsed := time.Since(began)

				msg := "request completed"
				if readable {
					msg = fmt.Sprintf("%s %s %d %s", r.Method, r.URL.Path, status, elapsed)
				}
				if ce := logger.Check(levelFor(status), msg); ce != nil {
					ce.Write(requestFields(r, ww, status, elapsed)...)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func levelFor(status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}

func requestFields(r *http.Request, ww chimw.WrapResponseWriter, status int, elapsed time.Duration) []zap.Field {
	fields := make([]zap.Field, 0, 8)
	fields = append(fields,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Int("bytes", ww.BytesWritten()),
		zap.Duration("duration", elapsed),
		zap.String("remote_ip", r.RemoteAddr),
	)
	if id := chimw.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	// chi fills the shared route context while routing below us.
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			fields = append(fields, zap.String("route", pattern))
		}
	}
	return fields
}
