package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var httpPanicsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "landsat_historic",
		Name:      "http_panics_total",
		Help:      "Total number of panics recovered in HTTP handlers",
	},
	[]string{"route"},
)

func init() {
	prometheus.MustRegister(httpPanicsTotal)
}

// Recovery returns middleware that recovers from panics.
func Recovery(logger logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}

				// Re-panic so net/http aborts the response as it intends.
				if err == http.ErrAbortHandler { //nolint:errorlint // sentinel compared as panic value.
					panic(err)
				}

				httpPanicsTotal.WithLabelValues(route(r)).Inc()

				logger.WithFields(logrus.Fields{
					"error":  fmt.Sprintf("%v", err),
					"stack":  string(debug.Stack()),
					"method": r.Method,
					"path":   r.URL.Path,
				}).Error("Panic recovered")

				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
