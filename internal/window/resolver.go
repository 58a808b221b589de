package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/checkpoint"
)

// Config holds window resolution settings.
type Config struct {
	// Name is the checkpoint name in the store.
	Name string
	// Layout is the canonical Go time layout shared by the checkpoint and
	// the query bounds.
	Layout string
	Unit   Unit
	// Lookback is the number of units covered by one window.
	Lookback int
	// InitialCheckpoint seeds the first run when the store is empty.
	InitialCheckpoint string
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	Window Window
	// Start and End are the formatted window bounds.
	Start string
	End   string
	// Checkpoint is the value read from the store ("" for explicit runs).
	Checkpoint string
	// NewCheckpoint is persisted by Commit after a successful run.
	NewCheckpoint string

	commit   bool
	expected string
}

// Commits reports whether Commit will write a checkpoint.
func (r Resolution) Commits() bool {
	return r.commit
}

// Resolver computes query windows from a persisted checkpoint.
type Resolver struct {
	log   logrus.FieldLogger
	cfg   Config
	store checkpoint.Store
}

// NewResolver creates a Resolver.
func NewResolver(log logrus.FieldLogger, cfg Config, store checkpoint.Store) *Resolver {
	return &Resolver{
		log:   log.WithField("component", "window"),
		cfg:   cfg,
		store: store,
	}
}

// Layout returns the canonical date layout.
func (r *Resolver) Layout() string {
	return r.cfg.Layout
}

// Resolve returns the window for in. It has no side effects.
func (r *Resolver) Resolve(ctx context.Context, in Input) (Resolution, error) {
	if w, ok := in.Explicit(); ok {
		start, end := w.Format(r.cfg.Layout)

		r.log.WithFields(logrus.Fields{
			"start": start,
			"end":   end,
		}).Info("Using explicit window")

		return Resolution{Window: w, Start: start, End: end}, nil
	}

	if r.cfg.Lookback < 1 {
		return Resolution{}, fmt.Errorf("%w: lookback must be at least 1, got %d", ErrInvalidConfiguration, r.cfg.Lookback)
	}

	if _, err := r.cfg.Unit.Shift(time.Time{}, 0); err != nil {
		return Resolution{}, err
	}

	raw, expected, err := r.current(ctx)
	if err != nil {
		return Resolution{}, err
	}

	end, err := time.Parse(r.cfg.Layout, raw)
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %q: %w", ErrCorruptCheckpoint, raw, err)
	}

	start, _ := r.cfg.Unit.Shift(end, -(r.cfg.Lookback - 1))
	next, _ := r.cfg.Unit.Shift(start, -1)

	res := Resolution{
		Window:        Window{Start: start, End: end},
		Checkpoint:    raw,
		NewCheckpoint: next.Format(r.cfg.Layout),
		commit:        true,
		expected:      expected,
	}
	res.Start, res.End = res.Window.Format(r.cfg.Layout)

	r.log.WithFields(logrus.Fields{
		"checkpoint":     raw,
		"start":          res.Start,
		"end":            res.End,
		"new_checkpoint": res.NewCheckpoint,
	}).Info("Resolved window from checkpoint")

	return res, nil
}

// Commit persists the new checkpoint of res. Explicit resolutions are a
// no-op. The write is conditional on the checkpoint still holding the value
// Resolve read.
func (r *Resolver) Commit(ctx context.Context, res Resolution) error {
	if !res.commit {
		return nil
	}

	swapped, err := r.store.CompareAndSwap(ctx, r.cfg.Name, res.expected, res.NewCheckpoint)
	if err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}

	if !swapped {
		return fmt.Errorf("%w: expected %q", ErrCheckpointConflict, res.Checkpoint)
	}

	r.log.WithFields(logrus.Fields{
		"name":       r.cfg.Name,
		"checkpoint": res.NewCheckpoint,
	}).Info("Advanced checkpoint")

	return nil
}

// current returns the checkpoint to start from and the value a later
// CompareAndSwap must expect ("" when seeded from the initial value).
func (r *Resolver) current(ctx context.Context) (raw, expected string, err error) {
	raw, err = r.store.Get(ctx, r.cfg.Name)
	if err == nil {
		return raw, raw, nil
	}

	if !errors.Is(err, checkpoint.ErrNotFound) {
		return "", "", fmt.Errorf("read checkpoint: %w", err)
	}

	if r.cfg.InitialCheckpoint == "" {
		return "", "", fmt.Errorf("%w: %s", ErrCheckpointUnavailable, r.cfg.Name)
	}

	r.log.WithField("initial_checkpoint", r.cfg.InitialCheckpoint).Info("No stored checkpoint, using initial value")

	return r.cfg.InitialCheckpoint, "", nil
}
