//nolint:tagliatelle // superior snake-case yo.
package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/window"
)

// Verify interface compliance at compile time.
var _ http.Handler = (*CheckpointHandler)(nil)

// CheckpointResponse describes the stored checkpoint and the window the
// next scheduled run will process.
type CheckpointResponse struct {
	Checkpoint     string `json:"checkpoint"`
	NextStart      string `json:"next_start"`
	NextEnd        string `json:"next_end"`
	NextCheckpoint string `json:"next_checkpoint"`
}

// CheckpointHandler handles GET /api/v1/checkpoint requests.
type CheckpointHandler struct {
	runner Runner
	logger logrus.FieldLogger
}

// NewCheckpointHandler creates a new checkpoint handler.
func NewCheckpointHandler(runner Runner, logger logrus.FieldLogger) *CheckpointHandler {
	return &CheckpointHandler{
		runner: runner,
		logger: logger.WithField("handler", "checkpoint"),
	}
}

// ServeHTTP handles the checkpoint request.
func (h *CheckpointHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := h.runner.Plan(r.Context(), window.Checkpointed())
	if err != nil {
		status := http.StatusServiceUnavailable

		switch {
		case errors.Is(err, window.ErrCheckpointUnavailable):
			status = http.StatusNotFound
		case errors.Is(err, window.ErrCorruptCheckpoint), errors.Is(err, window.ErrInvalidConfiguration):
			status = http.StatusInternalServerError
		}

		h.logger.WithError(err).Warn("Failed to resolve checkpoint")

		if werr := writeJSON(w, status, errorResponse{Error: err.Error()}); werr != nil {
			h.logger.WithError(werr).Error("Failed to encode response")
		}

		return
	}

	if err := writeJSON(w, http.StatusOK, CheckpointResponse{
		Checkpoint:     res.Checkpoint,
		NextStart:      res.Start,
		NextEnd:        res.End,
		NextCheckpoint: res.NewCheckpoint,
	}); err != nil {
		h.logger.WithError(err).Error("Failed to encode response")
	}
}
