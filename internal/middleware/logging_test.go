package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		handlerBody   string
		expectedLevel string
		expectedMsg   string
		expectedRoute string
	}{
		{
			name:          "api request logged at info",
			method:        http.MethodGet,
			path:          "/api/v1/checkpoint",
			handlerStatus: http.StatusOK,
			handlerBody:   `{"checkpoint":"2021-07-01 00:00:00"}`,
			expectedLevel: "info",
			expectedMsg:   "HTTP request completed",
			expectedRoute: "GET /api/v1/checkpoint",
		},
		{
			name:          "health probe logged at debug",
			method:        http.MethodGet,
			path:          "/health",
			handlerStatus: http.StatusOK,
			handlerBody:   "ok",
			expectedLevel: "debug",
			expectedMsg:   "HTTP request completed",
			expectedRoute: "GET /health",
		},
		{
			name:          "server error logged at warn",
			method:        http.MethodPost,
			path:          "/api/v1/runs",
			handlerStatus: http.StatusInternalServerError,
			handlerBody:   "internal error",
			expectedLevel: "warning",
			expectedMsg:   "HTTP request failed",
			expectedRoute: "POST /api/v1/runs",
		},
		{
			name:          "unknown path has no route",
			method:        http.MethodGet,
			path:          "/nope",
			handlerStatus: http.StatusNotFound,
			expectedLevel: "info",
			expectedMsg:   "HTTP request completed",
			expectedRoute: "unmatched",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			logger := logrus.New()
			logger.SetOutput(&buf)
			logger.SetFormatter(&logrus.JSONFormatter{})
			logger.SetLevel(logrus.DebugLevel)

			mux := http.NewServeMux()
			for _, pattern := range []string{"GET /api/v1/checkpoint", "GET /health", "POST /api/v1/runs"} {
				mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(tt.handlerStatus)
					_, err := w.Write([]byte(tt.handlerBody))
					require.NoError(t, err)
				})
			}

			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			Logging(logger)(mux).ServeHTTP(rec, req)

			assert.Equal(t, tt.handlerStatus, rec.Code)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			assert.Equal(t, tt.expectedLevel, entry["level"])
			assert.Equal(t, tt.expectedMsg, entry["msg"])
			assert.Equal(t, tt.expectedRoute, entry["route"])
			assert.Equal(t, tt.path, entry["path"])
			assert.InDelta(t, float64(tt.handlerStatus), entry["status"], 0)
			assert.Contains(t, entry, "duration_ms")
		})
	}
}

func TestLoggingMiddleware_BytesWritten(t *testing.T) {
	var buf bytes.Buffer

	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, err := w.Write([]byte("first "))
		require.NoError(t, err)

		_, err = w.Write([]byte("second"))
		require.NoError(t, err)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	Logging(logger)(handler).ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.InDelta(t, float64(len("first second")), entry["bytes_written"], 0)
}
