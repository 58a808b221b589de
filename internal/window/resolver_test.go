package window

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ethpandaops/landsat-historic/internal/checkpoint"
	checkpointmocks "github.com/ethpandaops/landsat-historic/internal/checkpoint/mocks"
	"github.com/ethpandaops/landsat-historic/internal/testutil"
)

const testLayout = "2006-01-02 15:04:05"

func testConfig(lookback int) Config {
	return Config{
		Name:     "landsat_last_date",
		Layout:   testLayout,
		Unit:     UnitDay,
		Lookback: lookback,
	}
}

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()

	ts, err := time.Parse(testLayout, value)
	require.NoError(t, err)

	return ts
}

func TestResolver_Checkpointed(t *testing.T) {
	tests := []struct {
		name              string
		checkpoint        string
		lookback          int
		unit              Unit
		wantStart         string
		wantEnd           string
		wantNewCheckpoint string
	}{
		{
			name:              "thirty day lookback",
			checkpoint:        "2021-07-01 00:00:00",
			lookback:          30,
			wantStart:         "2021-06-02 00:00:00",
			wantEnd:           "2021-07-01 00:00:00",
			wantNewCheckpoint: "2021-06-01 00:00:00",
		},
		{
			name:              "fifteen day lookback",
			checkpoint:        "2021-07-01 00:00:00",
			lookback:          15,
			wantStart:         "2021-06-17 00:00:00",
			wantEnd:           "2021-07-01 00:00:00",
			wantNewCheckpoint: "2021-06-16 00:00:00",
		},
		{
			name:              "single day window",
			checkpoint:        "2021-03-01 00:00:00",
			lookback:          1,
			wantStart:         "2021-03-01 00:00:00",
			wantEnd:           "2021-03-01 00:00:00",
			wantNewCheckpoint: "2021-02-28 00:00:00",
		},
		{
			name:              "leap year boundary",
			checkpoint:        "2020-03-01 00:00:00",
			lookback:          2,
			wantStart:         "2020-02-29 00:00:00",
			wantEnd:           "2020-03-01 00:00:00",
			wantNewCheckpoint: "2020-02-28 00:00:00",
		},
		{
			name:              "hourly unit",
			checkpoint:        "2021-07-01 05:00:00",
			lookback:          6,
			unit:              UnitHour,
			wantStart:         "2021-07-01 00:00:00",
			wantEnd:           "2021-07-01 05:00:00",
			wantNewCheckpoint: "2021-06-30 23:00:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := checkpointmocks.NewMockStore(ctrl)

			store.EXPECT().
				Get(gomock.Any(), "landsat_last_date").
				Return(tt.checkpoint, nil).
				Times(1)

			cfg := testConfig(tt.lookback)
			if tt.unit != "" {
				cfg.Unit = tt.unit
			}

			resolver := NewResolver(testutil.NewTestLogger(), cfg, store)

			res, err := resolver.Resolve(testutil.NewTestContext(t), Checkpointed())
			require.NoError(t, err)

			assert.Equal(t, tt.wantStart, res.Start)
			assert.Equal(t, tt.wantEnd, res.End)
			assert.Equal(t, tt.wantNewCheckpoint, res.NewCheckpoint)
			assert.Equal(t, tt.checkpoint, res.Checkpoint)
			assert.True(t, res.Commits())
			assert.False(t, res.Window.Start.After(res.Window.End))
		})
	}
}

func TestResolver_ExplicitWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := checkpointmocks.NewMockStore(ctrl)
	// No store calls are expected: explicit windows neither read nor write.

	resolver := NewResolver(testutil.NewTestLogger(), testConfig(30), store)

	w := Window{
		Start: mustParse(t, "2021-08-13 00:00:00"),
		End:   mustParse(t, "2021-08-14 00:00:00"),
	}

	res, err := resolver.Resolve(testutil.NewTestContext(t), Explicit(w))
	require.NoError(t, err)

	assert.Equal(t, w, res.Window)
	assert.Equal(t, "2021-08-13 00:00:00", res.Start)
	assert.Equal(t, "2021-08-14 00:00:00", res.End)
	assert.False(t, res.Commits())
	assert.Empty(t, res.NewCheckpoint)

	require.NoError(t, resolver.Commit(testutil.NewTestContext(t), res))
}

func TestResolver_InvalidLookback(t *testing.T) {
	for _, lookback := range []int{0, -1, -30} {
		t.Run(fmt.Sprintf("lookback %d", lookback), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := checkpointmocks.NewMockStore(ctrl)

			resolver := NewResolver(testutil.NewTestLogger(), testConfig(lookback), store)

			_, err := resolver.Resolve(testutil.NewTestContext(t), Checkpointed())
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}

func TestResolver_UnknownUnit(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := checkpointmocks.NewMockStore(ctrl)

	cfg := testConfig(30)
	cfg.Unit = "fortnight"

	resolver := NewResolver(testutil.NewTestLogger(), cfg, store)

	_, err := resolver.Resolve(testutil.NewTestContext(t), Checkpointed())
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestResolver_CheckpointErrors(t *testing.T) {
	tests := []struct {
		name    string
		stored  string
		getErr  error
		initial string
		wantErr error
	}{
		{
			name:    "missing checkpoint without initial value",
			getErr:  checkpoint.ErrNotFound,
			wantErr: ErrCheckpointUnavailable,
		},
		{
			name:    "stored value in wrong format",
			stored:  "2021/07/01",
			wantErr: ErrCorruptCheckpoint,
		},
		{
			name:    "corrupt initial value",
			getErr:  checkpoint.ErrNotFound,
			initial: "yesterday",
			wantErr: ErrCorruptCheckpoint,
		},
		{
			name:    "store failure is propagated",
			getErr:  assert.AnError,
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := checkpointmocks.NewMockStore(ctrl)

			store.EXPECT().
				Get(gomock.Any(), "landsat_last_date").
				Return(tt.stored, tt.getErr).
				Times(1)

			cfg := testConfig(30)
			cfg.InitialCheckpoint = tt.initial

			resolver := NewResolver(testutil.NewTestLogger(), cfg, store)

			_, err := resolver.Resolve(testutil.NewTestContext(t), Checkpointed())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolver_InitialCheckpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := checkpointmocks.NewMockStore(ctrl)

	store.EXPECT().
		Get(gomock.Any(), "landsat_last_date").
		Return("", fmt.Errorf("%w: landsat_last_date", checkpoint.ErrNotFound)).
		Times(1)

	// Seeded runs must create the checkpoint rather than overwrite one.
	store.EXPECT().
		CompareAndSwap(gomock.Any(), "landsat_last_date", "", "2021-06-01 00:00:00").
		Return(true, nil).
		Times(1)

	cfg := testConfig(30)
	cfg.InitialCheckpoint = "2021-07-01 00:00:00"

	resolver := NewResolver(testutil.NewTestLogger(), cfg, store)
	ctx := testutil.NewTestContext(t)

	res, err := resolver.Resolve(ctx, Checkpointed())
	require.NoError(t, err)
	assert.Equal(t, "2021-06-02 00:00:00", res.Start)

	require.NoError(t, resolver.Commit(ctx, res))
}

func TestResolver_Commit(t *testing.T) {
	tests := []struct {
		name    string
		swapped bool
		swapErr error
		wantErr error
	}{
		{
			name:    "checkpoint advanced",
			swapped: true,
		},
		{
			name:    "concurrent run moved the checkpoint",
			swapped: false,
			wantErr: ErrCheckpointConflict,
		},
		{
			name:    "store failure",
			swapErr: assert.AnError,
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := checkpointmocks.NewMockStore(ctrl)

			gomock.InOrder(
				store.EXPECT().
					Get(gomock.Any(), "landsat_last_date").
					Return("2021-07-01 00:00:00", nil),
				store.EXPECT().
					CompareAndSwap(gomock.Any(), "landsat_last_date", "2021-07-01 00:00:00", "2021-06-01 00:00:00").
					Return(tt.swapped, tt.swapErr),
			)

			resolver := NewResolver(testutil.NewTestLogger(), testConfig(30), store)
			ctx := testutil.NewTestContext(t)

			res, err := resolver.Resolve(ctx, Checkpointed())
			require.NoError(t, err)

			err = resolver.Commit(ctx, res)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestResolver_RetryYieldsSameWindow(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := checkpointmocks.NewMockStore(ctrl)

	// The checkpoint never advanced because the first run failed.
	store.EXPECT().
		Get(gomock.Any(), "landsat_last_date").
		Return("2021-07-01 00:00:00", nil).
		Times(2)

	resolver := NewResolver(testutil.NewTestLogger(), testConfig(30), store)
	ctx := testutil.NewTestContext(t)

	first, err := resolver.Resolve(ctx, Checkpointed())
	require.NoError(t, err)

	second, err := resolver.Resolve(ctx, Checkpointed())
	require.NoError(t, err)

	assert.Equal(t, first.Window, second.Window)
	assert.Equal(t, first.NewCheckpoint, second.NewCheckpoint)
}

func TestResolver_ConsecutiveWindowsAbut(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := checkpointmocks.NewMockStore(ctrl)

	stored := "2021-07-01 00:00:00"

	store.EXPECT().
		Get(gomock.Any(), "landsat_last_date").
		DoAndReturn(func(_ any, _ string) (string, error) { return stored, nil }).
		Times(3)

	store.EXPECT().
		CompareAndSwap(gomock.Any(), "landsat_last_date", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ any, _, expected, value string) (bool, error) {
			if expected != stored {
				return false, nil
			}

			stored = value

			return true, nil
		}).
		Times(3)

	resolver := NewResolver(testutil.NewTestLogger(), testConfig(10), store)
	ctx := testutil.NewTestContext(t)

	var previous *Resolution

	for i := 0; i < 3; i++ {
		res, err := resolver.Resolve(ctx, Checkpointed())
		require.NoError(t, err)

		if previous != nil {
			// The new window ends exactly one day before the previous start.
			assert.Equal(t, previous.Window.Start.AddDate(0, 0, -1), res.Window.End)
		}

		require.NoError(t, resolver.Commit(ctx, res))

		previous = &res
	}

	assert.Equal(t, "2021-06-01 00:00:00", stored)
}
