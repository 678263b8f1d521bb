package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/kbukum/authguard/logger"
)

var quietPaths = []string{"/health", "/favicon.ico"}

// RequestLogger logs every request with method, path, status and duration.
// 5xx log at error, 4xx at warn, the rest at debug. Health checks are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(quietPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := logger.Fields(
				"method", r.Method,
				logger.FieldPath, r.URL.Path,
				logger.FieldStatus, sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			if loc := sw.Header().Get("Location"); loc != "" && sw.status >= 300 && sw.status < 400 {
				fields[logger.FieldLocation] = loc
			}

			l := log.WithContext(r.Context())
			switch {
			case sw.status >= 500:
				l.Error("Request completed", fields)
			case sw.status >= 400:
				l.Warn("Request completed", fields)
			default:
				l.Debug("Request completed", fields)
			}
		})
	}
}
