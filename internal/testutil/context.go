package testutil

import (
	"context"
	"testing"
	"time"
)

// DefaultTimeout bounds contexts from NewTestContext. Runs against fakes
// finish well inside it.
const DefaultTimeout = 5 * time.Second

// NewTestContext creates a context cancelled after DefaultTimeout or when the
// test ends.
func NewTestContext(t *testing.T) context.Context {
	t.Helper()

	return NewTestContextWithTimeout(t, DefaultTimeout)
}

// NewTestContextWithTimeout creates a context with custom timeout.
func NewTestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)

	return ctx
}
