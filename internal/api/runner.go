package api

//go:generate mockgen -package mocks -destination mocks/mock_runner.go github.com/ethpandaops/landsat-historic/internal/api Runner

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ethpandaops/landsat-historic/internal/processor"
	"github.com/ethpandaops/landsat-historic/internal/window"
)

// Runner plans and executes processing runs.
type Runner interface {
	Plan(ctx context.Context, in window.Input) (window.Resolution, error)
	Run(ctx context.Context, in window.Input) (processor.Report, error)
}

// Compile-time interface compliance check.
var _ Runner = (*processor.Processor)(nil)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(body)
}
