package log

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

type ContextKey string

const (
	LoggerContextKey  ContextKey = "logger"
	requestContextKey ContextKey = "request"
)

// requestInfo collects what inner handlers learn about the request for the
// completion record.
type requestInfo struct {
	userID string
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext returns the request logger, or one around slog's default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: ComponentApp,
	}
}

// BindUser tags the request logger in ctx with userID. The completion record
// of the request carries it too.
func BindUser(ctx context.Context, userID string) context.Context {
	if info, ok := ctx.Value(requestContextKey).(*requestInfo); ok {
		info.userID = userID
	}
	return WithContext(ctx, FromContext(ctx).With(FieldUserID, userID))
}

// RequestLogger attaches a request scoped logger and logs each request on
// completion. The request id comes from extractRequestID and the client IP
// from extractIP.
func RequestLogger(base *Logger, extractRequestID, extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := extractRequestID(r)
			clientIP := extractIP(r)

			logger := base.WithComponent(ComponentHTTP).With(FieldRequestID, requestID)
			info := &requestInfo{}
			ctx := context.WithValue(WithContext(r.Context(), logger), requestContextKey, info)
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case status >= 400:
				level = slog.LevelWarn
			}

			fields := NewFields().
				WithComponent(ComponentHTTP).
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
				WithHTTPResponse(status, time.Since(start).Milliseconds()).
				WithClientIP(clientIP).
				WithUser(info.userID)

			logger.Logger.Log(r.Context(), level, "HTTP request completed", fields.ToSlice()...)
		})
	}
}
