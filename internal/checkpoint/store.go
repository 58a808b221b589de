// Package checkpoint persists the processing frontier of the historic
// backfill under a configured name.
package checkpoint

//go:generate mockgen -package mocks -destination mocks/mock_store.go github.com/ethpandaops/landsat-historic/internal/checkpoint Store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the name.
var ErrNotFound = errors.New("checkpoint not found")

// Store is a single shared key/value cell per checkpoint name.
type Store interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, name string) (string, error)
	// Put unconditionally overwrites the stored value.
	Put(ctx context.Context, name, value string) error
	// CompareAndSwap writes value only if the stored value still equals
	// expected. An empty expected value means the name must be unset.
	// Returns false when another writer got there first.
	CompareAndSwap(ctx context.Context, name, expected, value string) (bool, error)
}
