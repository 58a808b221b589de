package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	apimocks "github.com/ethpandaops/landsat-historic/internal/api/mocks"
	"github.com/ethpandaops/landsat-historic/internal/processor"
	"github.com/ethpandaops/landsat-historic/internal/testutil"
	"github.com/ethpandaops/landsat-historic/internal/window"
)

func TestHandler_Routes(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		setup          func(runner *apimocks.MockRunner)
		expectedStatus int
	}{
		{
			name:           "health",
			method:         http.MethodGet,
			path:           "/health",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "metrics",
			method:         http.MethodGet,
			path:           "/metrics",
			expectedStatus: http.StatusOK,
		},
		{
			name:   "checkpoint",
			method: http.MethodGet,
			path:   "/api/v1/checkpoint",
			setup: func(runner *apimocks.MockRunner) {
				runner.EXPECT().Plan(gomock.Any(), window.Checkpointed()).Return(window.Resolution{}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:   "trigger run",
			method: http.MethodPost,
			path:   "/api/v1/runs",
			body:   "{}",
			setup: func(runner *apimocks.MockRunner) {
				runner.EXPECT().Run(gomock.Any(), window.Checkpointed()).Return(processor.Report{RunID: "r"}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "runs rejects GET",
			method:         http.MethodGet,
			path:           "/api/v1/runs",
			expectedStatus: http.StatusMethodNotAllowed,
		},
		{
			name:           "unknown route",
			method:         http.MethodGet,
			path:           "/api/v1/unknown",
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := apimocks.NewMockRunner(gomock.NewController(t))
			if tt.setup != nil {
				tt.setup(runner)
			}

			h := Handler(testutil.NewTestLogger(), Config{Layout: "2006-01-02 15:04:05"}, runner, nil)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}
