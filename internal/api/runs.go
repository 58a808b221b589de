//nolint:tagliatelle // superior snake-case yo.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/processor"
	"github.com/ethpandaops/landsat-historic/internal/window"
)

// Verify interface compliance at compile time.
var _ http.Handler = (*RunsHandler)(nil)

const maxTriggerBytes = 4 << 10

// RunResponse summarises a finished run.
type RunResponse struct {
	RunID         string `json:"run_id"`
	Mode          string `json:"mode"`
	Start         string `json:"start,omitempty"`
	End           string `json:"end,omitempty"`
	Checkpoint    string `json:"checkpoint,omitempty"`
	NewCheckpoint string `json:"new_checkpoint,omitempty"`
	Committed     bool   `json:"committed"`
	Published     int    `json:"published"`
	Skipped       int    `json:"skipped"`
	Reassembled   int    `json:"reassembled"`
	BytesScanned  int64  `json:"bytes_scanned"`
	DurationMS    int64  `json:"duration_ms"`
	Error         string `json:"error,omitempty"`
}

func newRunResponse(report processor.Report, err error) RunResponse {
	resp := RunResponse{
		RunID:         report.RunID,
		Mode:          report.Mode,
		Start:         report.Start,
		End:           report.End,
		Checkpoint:    report.Checkpoint,
		NewCheckpoint: report.NewCheckpoint,
		Committed:     report.Committed,
		Published:     report.Published,
		Skipped:       report.Skipped,
		Reassembled:   report.Dispatch.Reassembled,
		BytesScanned:  report.Dispatch.Stats.BytesScanned,
		DurationMS:    report.Duration.Milliseconds(),
	}

	if err != nil {
		resp.Error = err.Error()
	}

	return resp
}

// RunsHandler handles POST /api/v1/runs requests. The body is the trigger
// payload; an empty body runs from the checkpoint. The run executes
// synchronously and is cancelled if the client goes away.
type RunsHandler struct {
	runner Runner
	layout string
	logger logrus.FieldLogger
}

// NewRunsHandler creates a new runs handler. layout parses trigger dates.
func NewRunsHandler(runner Runner, layout string, logger logrus.FieldLogger) *RunsHandler {
	return &RunsHandler{
		runner: runner,
		layout: layout,
		logger: logger.WithField("handler", "runs"),
	}
}

// ServeHTTP handles the run request.
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var trigger window.TriggerInput

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTriggerBytes))
	if err != nil {
		h.fail(w, http.StatusBadRequest, err)

		return
	}

	if len(body) > 0 {
		if err := json.Unmarshal(body, &trigger); err != nil {
			h.fail(w, http.StatusBadRequest, err)

			return
		}
	}

	in, err := window.ParseTrigger(trigger, h.layout)
	if err != nil {
		h.fail(w, http.StatusBadRequest, err)

		return
	}

	report, err := h.runner.Run(r.Context(), in)

	status := http.StatusOK

	switch {
	case err == nil:
	case errors.Is(err, processor.ErrRunInProgress), errors.Is(err, window.ErrCheckpointConflict):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	if err != nil {
		h.logger.WithError(err).WithField("run_id", report.RunID).Warn("Triggered run failed")
	}

	if werr := writeJSON(w, status, newRunResponse(report, err)); werr != nil {
		h.logger.WithError(werr).Error("Failed to encode response")
	}
}

func (h *RunsHandler) fail(w http.ResponseWriter, status int, err error) {
	h.logger.WithError(err).Debug("Rejected run request")

	if werr := writeJSON(w, status, errorResponse{Error: err.Error()}); werr != nil {
		h.logger.WithError(werr).Error("Failed to encode response")
	}
}
