package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// quietPaths are polled by orchestrators and logged at debug level.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Logging returns middleware that logs all HTTP requests.
func Logging(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			entry := logger.WithFields(logrus.Fields{
				"method":        r.Method,
				"path":          r.URL.Path,
				"route":         route(r),
				"status":        rec.statusCode,
				"duration_ms":   time.Since(start).Milliseconds(),
				"bytes_written": rec.bytesWritten,
				"remote_addr":   r.RemoteAddr,
			})

			switch {
			case rec.statusCode >= http.StatusInternalServerError:
				entry.Warn("HTTP request failed")
			case quietPaths[r.URL.Path]:
				entry.Debug("HTTP request completed")
			default:
				entry.Info("HTTP request completed")
			}
		})
	}
}
