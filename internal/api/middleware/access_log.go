package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/gistify/internal/logger"
)

type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

// AccessLog attaches a request-scoped logger to the context and emits one
// structured line per request.
func AccessLog(base logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}

			reqLog := base
			if id := GetRequestID(r.Context()); id != "" {
				reqLog = base.With("request_id", id)
			}
			r = r.WithContext(logger.WithContext(r.Context(), reqLog))

			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}

			keyvals := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", rec.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", clientIP(r),
			}
			if principal := GetPrincipal(r.Context()); principal != "" {
				keyvals = append(keyvals, "principal", principal)
			}
			if ua := r.UserAgent(); ua != "" {
				keyvals = append(keyvals, "user_agent", ua)
			}

			switch {
			case status >= http.StatusInternalServerError:
				reqLog.Error("http request", keyvals...)
			case status >= http.StatusBadRequest:
				reqLog.Warn("http request", keyvals...)
			default:
				reqLog.Info("http request", keyvals...)
			}
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
