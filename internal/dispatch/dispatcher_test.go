package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/landsat-historic/internal/testutil"
)

// collector records every dispatched record as a compact string.
type collector struct {
	records []string
	stats   []StatsEvent
}

func (c *collector) onRecord(_ context.Context, record json.RawMessage) error {
	c.records = append(c.records, string(record))

	return nil
}

func (c *collector) onStats(stats StatsEvent) {
	c.stats = append(c.stats, stats)
}

func chunks(parts ...string) EventStream {
	events := make([]Event, 0, len(parts))
	for _, p := range parts {
		events = append(events, RecordsEvent{Payload: []byte(p)})
	}

	return NewSliceStream(events...)
}

func newDispatcher(policy MalformedPolicy) *Dispatcher {
	return New(testutil.NewTestLogger(), Config{MalformedPolicy: policy})
}

func TestDispatch_SplitRecord(t *testing.T) {
	c := &collector{}

	res, err := newDispatcher(PolicyAbort).Dispatch(
		testutil.NewTestContext(t),
		chunks(`{"id":"A"}`+"\n"+`{"id":`, `"B"}`+"\n"),
		c.onRecord,
		c.onStats,
	)
	require.NoError(t, err)

	assert.Equal(t, []string{`{"id":"A"}`, `{"id":"B"}`}, c.records)
	assert.Equal(t, 2, res.Records)
	assert.Equal(t, 1, res.Reassembled)
	assert.Equal(t, 2, res.Chunks)
	assert.Empty(t, res.Residual)
}

func TestDispatch_StatsOnly(t *testing.T) {
	c := &collector{}

	stream := NewSliceStream(StatsEvent{BytesScanned: 1, BytesProcessed: 2})

	res, err := newDispatcher(PolicyAbort).Dispatch(testutil.NewTestContext(t), stream, c.onRecord, c.onStats)
	require.NoError(t, err)

	assert.Empty(t, c.records)
	require.Len(t, c.stats, 1)
	assert.Equal(t, int64(1), c.stats[0].BytesScanned)
	assert.Equal(t, int64(2), c.stats[0].BytesProcessed)
	assert.Equal(t, c.stats[0], res.Stats)
}

func TestDispatch_StatsDoNotDisturbFragment(t *testing.T) {
	c := &collector{}

	stream := NewSliceStream(
		RecordsEvent{Payload: []byte(`{"id":`)},
		StatsEvent{BytesScanned: 10},
		RecordsEvent{Payload: []byte(`"A"}` + "\n")},
	)

	_, err := newDispatcher(PolicyAbort).Dispatch(testutil.NewTestContext(t), stream, c.onRecord, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"id":"A"}`}, c.records)
}

func TestDispatch_IndentedRecordsAndTrailingGarbage(t *testing.T) {
	payload := `{"landsat_product_id":        "LC08_L1TP_218002_20220327_20220329_02_T1"}` + "\n" +
		`    {"landsat_product_id":        "LC08_L1TP_202030_20220327_20220330_02_T1"}` + "\n" +
		`        BytesScanned 1`

	tests := []struct {
		name        string
		policy      MalformedPolicy
		wantErr     error
		wantSkipped int
	}{
		{
			name:    "abort reports the truncated tail",
			policy:  PolicyAbort,
			wantErr: ErrTruncatedStream,
		},
		{
			name:        "skip tolerates the tail",
			policy:      PolicySkip,
			wantSkipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}

			res, err := newDispatcher(tt.policy).Dispatch(testutil.NewTestContext(t), chunks(payload), c.onRecord, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			// Both records are published regardless of how the tail is treated.
			assert.Len(t, c.records, 2)
			assert.Equal(t, 2, res.Records)
			assert.Equal(t, "        BytesScanned 1", res.Residual)
			assert.Equal(t, tt.wantSkipped, res.Skipped)
		})
	}
}

func TestDispatch_SplitAtAnyPoint(t *testing.T) {
	records := []string{
		`{"product_id":"LC08_L1TP_218002_20220327_20220329_02_T1","date_acquired":"2022/03/27"}`,
		`{"product_id":"LC08_L1TP_202030_20220327_20220330_02_T1","note":"line\nbreak {escaped}"}`,
		`{"product_id":"LC08_L1GT_001002_20220101_20220102_02_T2","nested":{"a":[1,2,{"b":null}]}}`,
	}
	stream := strings.Join(records, "\n") + "\n"

	for i := 0; i <= len(stream); i++ {
		for j := i; j <= len(stream); j++ {
			c := &collector{}

			res, err := newDispatcher(PolicyAbort).Dispatch(
				context.Background(),
				chunks(stream[:i], stream[i:j], stream[j:]),
				c.onRecord,
				nil,
			)
			require.NoError(t, err, "split at %d/%d", i, j)
			require.Equal(t, records, c.records, "split at %d/%d", i, j)
			require.Equal(t, len(records), res.Records)
		}
	}
}

func TestDispatch_OneByteChunks(t *testing.T) {
	stream := `{"id":"A","pad":"` + strings.Repeat("x", 64) + `"}` + "\n" + `{"id":"B"}` + "\n"

	parts := make([]string, 0, len(stream))
	for _, b := range []byte(stream) {
		parts = append(parts, string(b))
	}

	c := &collector{}

	res, err := newDispatcher(PolicyAbort).Dispatch(testutil.NewTestContext(t), chunks(parts...), c.onRecord, nil)
	require.NoError(t, err)

	require.Len(t, c.records, 2)
	assert.Equal(t, `{"id":"B"}`, c.records[1])
	assert.Equal(t, len(stream), res.Chunks)
}

func TestDispatch_RecordWithoutTrailingNewline(t *testing.T) {
	c := &collector{}

	res, err := newDispatcher(PolicyAbort).Dispatch(
		testutil.NewTestContext(t),
		chunks(`{"id":"A"}`, "\n"+`{"id":"B"}`, "", "\n"),
		c.onRecord,
		nil,
	)
	require.NoError(t, err)

	assert.Equal(t, []string{`{"id":"A"}`, `{"id":"B"}`}, c.records)
	assert.Empty(t, res.Residual)
}

func TestDispatch_MalformedLine(t *testing.T) {
	payload := `{"id":"A"}` + "\n" + `not json` + "\n" + `{"id":"B"}` + "\n"

	tests := []struct {
		name        string
		policy      MalformedPolicy
		wantErr     error
		wantRecords []string
	}{
		{
			name:        "abort stops at the malformed line",
			policy:      PolicyAbort,
			wantErr:     ErrMalformedRecord,
			wantRecords: []string{`{"id":"A"}`},
		},
		{
			name:        "skip continues past the malformed line",
			policy:      PolicySkip,
			wantRecords: []string{`{"id":"A"}`, `{"id":"B"}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &collector{}

			_, err := newDispatcher(tt.policy).Dispatch(testutil.NewTestContext(t), chunks(payload), c.onRecord, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, tt.wantRecords, c.records)
		})
	}
}

func TestDispatch_NonObjectLineIsMalformed(t *testing.T) {
	c := &collector{}

	_, err := newDispatcher(PolicyAbort).Dispatch(testutil.NewTestContext(t), chunks("[1,2]\n"), c.onRecord, nil)
	require.ErrorIs(t, err, ErrMalformedRecord)
	assert.Empty(t, c.records)
}

func TestDispatch_FragmentLimit(t *testing.T) {
	d := New(testutil.NewTestLogger(), Config{MaxFragmentBytes: 16})
	c := &collector{}

	_, err := d.Dispatch(
		testutil.NewTestContext(t),
		chunks(`{"id":"`, strings.Repeat("y", 32)),
		c.onRecord,
		nil,
	)
	require.ErrorIs(t, err, ErrFragmentTooLarge)
	assert.Empty(t, c.records)
}

func TestDispatch_CallbackErrorStops(t *testing.T) {
	sentinel := errors.New("publish failed")
	calls := 0

	onRecord := func(_ context.Context, _ json.RawMessage) error {
		calls++

		return sentinel
	}

	res, err := newDispatcher(PolicyAbort).Dispatch(
		testutil.NewTestContext(t),
		chunks(`{"id":"A"}`+"\n"+`{"id":"B"}`+"\n"),
		onRecord,
		nil,
	)
	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, res.Records)
}

func TestDispatch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &collector{}

	_, err := newDispatcher(PolicyAbort).Dispatch(ctx, chunks(`{"id":"A"}`+"\n"), c.onRecord, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, c.records)
}

type failingStream struct {
	events []Event
	err    error
}

func (f *failingStream) Next(_ context.Context) (Event, error) {
	if len(f.events) == 0 {
		return nil, f.err
	}

	ev := f.events[0]
	f.events = f.events[1:]

	return ev, nil
}

func (f *failingStream) Close() error { return nil }

func TestDispatch_StreamError(t *testing.T) {
	c := &collector{}
	stream := &failingStream{
		events: []Event{RecordsEvent{Payload: []byte(`{"id":"A"}` + "\n")}},
		err:    fmt.Errorf("connection reset"),
	}

	res, err := newDispatcher(PolicyAbort).Dispatch(testutil.NewTestContext(t), stream, c.onRecord, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, 1, res.Records)
}

func TestDispatch_EmptyStream(t *testing.T) {
	c := &collector{}

	res, err := newDispatcher(PolicyAbort).Dispatch(testutil.NewTestContext(t), NewSliceStream(), c.onRecord, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestSliceStream_EOF(t *testing.T) {
	s := NewSliceStream(StatsEvent{})

	_, err := s.Next(context.Background())
	require.NoError(t, err)

	_, err = s.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, s.Close())
}
