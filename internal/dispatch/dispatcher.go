// Package dispatch reassembles newline-delimited JSON records from a chunked
// query result stream and hands each record to a callback exactly once.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

var (
	// ErrMalformedRecord is returned for a complete line that is not a JSON
	// object.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrTruncatedStream is returned when the stream ends inside a record.
	ErrTruncatedStream = errors.New("stream ended inside a record")
	// ErrFragmentTooLarge is returned when a carried fragment outgrows
	// Config.MaxFragmentBytes.
	ErrFragmentTooLarge = errors.New("record fragment exceeds limit")
)

// DefaultMaxFragmentBytes bounds the carry-over buffer.
const DefaultMaxFragmentBytes = 1 << 20

// MalformedPolicy decides what happens to lines that can never become a
// record.
type MalformedPolicy string

const (
	// PolicyAbort fails the dispatch on a malformed line or a residual
	// fragment at end of stream.
	PolicyAbort MalformedPolicy = "abort"
	// PolicySkip logs and counts them and keeps going.
	PolicySkip MalformedPolicy = "skip"
)

// OnRecord receives each reassembled record in arrival order. Returning an
// error stops the dispatch.
type OnRecord func(ctx context.Context, record json.RawMessage) error

// OnStats receives query statistics.
type OnStats func(stats StatsEvent)

// Config holds dispatcher settings.
type Config struct {
	MaxFragmentBytes int
	MalformedPolicy  MalformedPolicy
}

// Result summarises one dispatch.
type Result struct {
	Chunks  int
	Records int
	// Reassembled counts records completed from a fragment carried over
	// from an earlier chunk.
	Reassembled int
	// Skipped counts lines dropped under PolicySkip.
	Skipped int
	// Residual is the incomplete record left when the stream ended.
	Residual string
	Stats    StatsEvent
}

// Dispatcher consumes result streams.
type Dispatcher struct {
	log logrus.FieldLogger
	cfg Config
}

// New creates a Dispatcher, applying defaults to cfg.
func New(log logrus.FieldLogger, cfg Config) *Dispatcher {
	if cfg.MaxFragmentBytes <= 0 {
		cfg.MaxFragmentBytes = DefaultMaxFragmentBytes
	}

	if cfg.MalformedPolicy == "" {
		cfg.MalformedPolicy = PolicyAbort
	}

	return &Dispatcher{
		log: log.WithField("component", "dispatch"),
		cfg: cfg,
	}
}

// run is the per-stream state.
type run struct {
	ctx      context.Context
	onRecord OnRecord
	pending  []byte
	// carried is true while pending holds bytes from an earlier chunk.
	carried bool
	line    int
	result  Result
}

// Dispatch reads stream to the end, invoking onRecord for every record and
// onStats for every statistics event. onStats may be nil.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	stream EventStream,
	onRecord OnRecord,
	onStats OnStats,
) (Result, error) {
	r := &run{ctx: ctx, onRecord: onRecord}

	for {
		ev, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return r.result, fmt.Errorf("read stream: %w", err)
		}

		switch e := ev.(type) {
		case RecordsEvent:
			r.result.Chunks++

			if err := d.consume(r, e.Payload); err != nil {
				return r.result, err
			}
		case StatsEvent:
			r.result.Stats = e

			d.log.WithFields(logrus.Fields{
				"bytes_scanned":   humanize.Bytes(uint64(max(e.BytesScanned, 0))),
				"bytes_processed": humanize.Bytes(uint64(max(e.BytesProcessed, 0))),
				"bytes_returned":  humanize.Bytes(uint64(max(e.BytesReturned, 0))),
			}).Info("Query stats")

			if onStats != nil {
				onStats(e)
			}
		}
	}

	return r.result, d.finish(r)
}

// consume appends payload to the carry-over buffer and dispatches every
// record it completes. Whatever follows the last delimiter stays pending
// unless it already parses as a record.
func (d *Dispatcher) consume(r *run, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}

	r.pending = append(r.pending, payload...)
	data := r.pending

	for {
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}

		line := data[:idx]
		data = data[idx+1:]

		if err := d.handle(r, Classify(line, true)); err != nil {
			return err
		}
	}

	outcome := Classify(data, false)
	if outcome.Kind != OutcomeFragment {
		r.pending = r.pending[:0]

		return d.handle(r, outcome)
	}

	if len(data) > d.cfg.MaxFragmentBytes {
		return fmt.Errorf(
			"%w: %s pending after %d chunks (limit %s)",
			ErrFragmentTooLarge,
			humanize.IBytes(uint64(len(data))),
			r.result.Chunks,
			humanize.IBytes(uint64(d.cfg.MaxFragmentBytes)),
		)
	}

	r.pending = append(r.pending[:0], data...)
	r.carried = true

	d.log.WithField("fragment_bytes", len(r.pending)).Debug("Carrying record fragment to next chunk")

	return nil
}

func (d *Dispatcher) handle(r *run, outcome ParseOutcome) error {
	if outcome.Kind == OutcomeEmpty {
		return nil
	}

	r.line++
	reassembled := r.carried
	r.carried = false

	switch outcome.Kind {
	case OutcomeRecord:
		if reassembled {
			r.result.Reassembled++
		}

		if err := r.onRecord(r.ctx, outcome.Record); err != nil {
			return fmt.Errorf("handle record %d: %w", r.result.Records+1, err)
		}

		r.result.Records++

		return nil
	case OutcomeMalformed:
		return d.malformed(r, fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, r.line, outcome.Err))
	default:
		return nil
	}
}

func (d *Dispatcher) finish(r *run) error {
	if len(r.pending) == 0 {
		return nil
	}

	r.result.Residual = string(r.pending)

	return d.malformed(r, fmt.Errorf("%w: %d bytes left", ErrTruncatedStream, len(r.pending)))
}

func (d *Dispatcher) malformed(r *run, err error) error {
	if d.cfg.MalformedPolicy != PolicySkip {
		return err
	}

	r.result.Skipped++
	d.log.WithError(err).Warn("Skipping unusable record data")

	return nil
}
