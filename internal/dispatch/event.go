package dispatch

import (
	"context"
	"io"
)

// Event is one element of a filtered query result stream.
type Event interface {
	isEvent()
}

// RecordsEvent carries a raw chunk of newline-delimited JSON records. A
// chunk may end in the middle of a record.
type RecordsEvent struct {
	Payload []byte
}

// StatsEvent carries the query engine's byte counters.
type StatsEvent struct {
	BytesScanned   int64
	BytesProcessed int64
	BytesReturned  int64
}

func (RecordsEvent) isEvent() {}
func (StatsEvent) isEvent()   {}

// EventStream is a finite, non-restartable sequence of events.
type EventStream interface {
	// Next blocks until the next event is available. It returns io.EOF
	// once the stream is exhausted.
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Compile-time interface compliance check.
var _ EventStream = (*sliceStream)(nil)

type sliceStream struct {
	events []Event
	pos    int
}

// NewSliceStream returns a stream over events already in memory.
func NewSliceStream(events ...Event) EventStream {
	return &sliceStream{events: events}
}

func (s *sliceStream) Next(ctx context.Context) (Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.pos >= len(s.events) {
		return nil, io.EOF
	}

	ev := s.events[s.pos]
	s.pos++

	return ev, nil
}

func (s *sliceStream) Close() error {
	return nil
}
