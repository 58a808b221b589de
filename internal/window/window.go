//nolint:tagliatelle // trigger payload keeps the scheduler's snake_case keys.
package window

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrCheckpointUnavailable is returned when the store has no checkpoint
	// and no initial value is configured.
	ErrCheckpointUnavailable = errors.New("checkpoint unavailable")
	// ErrCorruptCheckpoint is returned when the stored checkpoint does not
	// parse with the configured layout.
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")
	// ErrInvalidConfiguration is returned for a non-positive lookback or an
	// unknown unit.
	ErrInvalidConfiguration = errors.New("invalid window configuration")
	// ErrInvalidTrigger is returned for trigger input naming only one bound,
	// unparseable bounds, or a start after the end.
	ErrInvalidTrigger = errors.New("invalid trigger input")
	// ErrCheckpointConflict is returned by Commit when the stored checkpoint
	// moved since it was read.
	ErrCheckpointConflict = errors.New("checkpoint changed by another run")
)

// Unit is the granularity of window arithmetic.
type Unit string

const (
	UnitDay  Unit = "day"
	UnitHour Unit = "hour"
)

// Shift moves t by n units. Days use calendar arithmetic.
func (u Unit) Shift(t time.Time, n int) (time.Time, error) {
	switch u {
	case UnitDay:
		return t.AddDate(0, 0, n), nil
	case UnitHour:
		return t.Add(time.Duration(n) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidConfiguration, u)
	}
}

// Window is an inclusive range of acquisition dates consumed by one query.
type Window struct {
	Start time.Time
	End   time.Time
}

// Format renders both bounds with layout.
func (w Window) Format(layout string) (start, end string) {
	return w.Start.Format(layout), w.End.Format(layout)
}

// Input selects how a run obtains its window.
type Input struct {
	explicit *Window
}

// Explicit is a manual replay of w. It never advances the checkpoint.
func Explicit(w Window) Input {
	return Input{explicit: &w}
}

// Checkpointed derives the window from the persisted checkpoint.
func Checkpointed() Input {
	return Input{}
}

// Explicit reports the caller-supplied window, if any.
func (i Input) Explicit() (Window, bool) {
	if i.explicit == nil {
		return Window{}, false
	}

	return *i.explicit, true
}

// TriggerInput is the invocation payload. Both fields absent selects
// checkpoint mode.
type TriggerInput struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// ParseTrigger converts a trigger payload into an Input using layout.
func ParseTrigger(in TriggerInput, layout string) (Input, error) {
	switch {
	case in.StartDate == "" && in.EndDate == "":
		return Checkpointed(), nil
	case in.StartDate == "" || in.EndDate == "":
		return Input{}, fmt.Errorf("%w: start_date and end_date must be given together", ErrInvalidTrigger)
	}

	start, err := parseBound(layout, in.StartDate)
	if err != nil {
		return Input{}, fmt.Errorf("%w: start_date: %w", ErrInvalidTrigger, err)
	}

	end, err := parseBound(layout, in.EndDate)
	if err != nil {
		return Input{}, fmt.Errorf("%w: end_date: %w", ErrInvalidTrigger, err)
	}

	if start.After(end) {
		return Input{}, fmt.Errorf("%w: start_date %s is after end_date %s", ErrInvalidTrigger, in.StartDate, in.EndDate)
	}

	return Explicit(Window{Start: start, End: end}), nil
}

// parseBound parses value and requires it to format back unchanged, so the
// query receives the bound exactly as given. time.Parse alone accepts
// fractional seconds the layout does not declare.
func parseBound(layout, value string) (time.Time, error) {
	t, err := time.Parse(layout, value)
	if err != nil {
		return time.Time{}, err
	}

	if formatted := t.Format(layout); formatted != value {
		return time.Time{}, fmt.Errorf("%q is not in layout %q (formats as %q)", value, layout, formatted)
	}

	return t, nil
}
