package mockapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	loggerKey  contextKey = "mockapi_logger"
	accountKey contextKey = "mockapi_account"
)

// maxUploadBytes bounds a complete body. A full cookie jar is rarely above
// a few hundred KiB.
const maxUploadBytes = 8 << 20

// headerConfig lists the security headers set on every response.
type headerConfig struct {
	CSP                 string
	XFrameOptions       string
	XContentTypeOptions string
	ReferrerPolicy      string
}

// welcomeHeaders allows the inline script of the welcome page.
func welcomeHeaders() headerConfig {
	return headerConfig{
		CSP:                 "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
	}
}

func apiHeaders() headerConfig {
	return headerConfig{
		CSP:                 "default-src 'none'; frame-ancestors 'none'",
		XFrameOptions:       "DENY",
		XContentTypeOptions: "nosniff",
		ReferrerPolicy:      "no-referrer",
	}
}

func securityHeaders(cfg headerConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", cfg.CSP)
			h.Set("X-Frame-Options", cfg.XFrameOptions)
			h.Set("X-Content-Type-Options", cfg.XContentTypeOptions)
			h.Set("Referrer-Policy", cfg.ReferrerPolicy)
			next.ServeHTTP(w, r)
		})
	}
}

// maxBody caps request bodies.
func maxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// traceID tags each request with an id, echoed in X-Trace-ID, and stores a
// request-scoped logger in the context.
func traceID(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.NewString()[:8]
			w.Header().Set("X-Trace-ID", id)
			logger := base.With("trace_id", id, "method", r.Method, "path", r.URL.Path)
			logger.Debug("mockapi: request")
			ctx := context.WithValue(r.Context(), loggerKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func accountFrom(ctx context.Context) string {
	id, _ := ctx.Value(accountKey).(string)
	return id
}
