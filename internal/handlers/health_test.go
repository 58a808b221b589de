package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	leadermocks "github.com/ethpandaops/landsat-historic/internal/leader/mocks"
	"github.com/ethpandaops/landsat-historic/internal/version"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		hasElector bool
		isLeader   bool
	}{
		{name: "scheduling disabled"},
		{name: "follower", hasElector: true},
		{name: "leader", hasElector: true, isLeader: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var status LeaderStatus

			if tt.hasElector {
				elector := leadermocks.NewMockElector(gomock.NewController(t))
				elector.EXPECT().IsLeader().Return(tt.isLeader).Times(1)
				status = elector
			}

			w := httptest.NewRecorder()
			Health(status)(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, http.StatusOK, w.Code)

			var resp HealthResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "healthy", resp.Status)
			assert.Equal(t, version.Short(), resp.Version)
			assert.Equal(t, tt.isLeader, resp.Leader)
		})
	}
}
