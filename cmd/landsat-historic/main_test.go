package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/ethpandaops/landsat-historic/internal/awsclient"
	"github.com/ethpandaops/landsat-historic/internal/checkpoint"
	"github.com/ethpandaops/landsat-historic/internal/checkpoint/mocks"
	"github.com/ethpandaops/landsat-historic/internal/config"
	"github.com/ethpandaops/landsat-historic/internal/dispatch"
	"github.com/ethpandaops/landsat-historic/internal/processor"
	"github.com/ethpandaops/landsat-historic/internal/testutil"
	"github.com/ethpandaops/landsat-historic/internal/window"
)

const ssmConfig = `
server:
  host: localhost
  port: 8080
  read_timeout: 1s
  write_timeout: 1m
  shutdown_timeout: 1s
  log_level: error
aws:
  region: us-west-2
source:
  bucket: landsat-historic-inventory-bucket
window:
  backend: ssm
  lookback: 30
publish:
  topic_arn: arn:aws:sns:us-west-2:123456789012:landsat-historic
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	rootCmd := newRootCommand()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()

	return buf.String(), err
}

func TestRootCommand_HelpAndSubcommands(t *testing.T) {
	tests := []struct {
		args    []string
		wantOut string
		wantErr bool
	}{
		{args: []string{"--help"}, wantOut: "walks the Landsat inventory backwards"},
		{args: []string{"serve", "--help"}, wantOut: "GET /api/v1/checkpoint"},
		{args: []string{"run", "--help"}, wantOut: "--start"},
		{args: []string{"plan", "--help"}, wantOut: "Nothing is queried or written"},
		{args: []string{"sync-inventory", "--help"}, wantOut: "requester pays"},
		{args: []string{"unknown"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			out, err := execute(t, tt.args...)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "landsat-historic dev")
}

func TestRunCommand_RejectsHalfWindow(t *testing.T) {
	path := writeConfig(t, ssmConfig)

	_, err := execute(t, "run", "--config", path, "--start", "2021-06-01 00:00:00")
	require.ErrorIs(t, err, window.ErrInvalidTrigger)
}

func TestPlanCommand_MissingConfig(t *testing.T) {
	_, err := execute(t, "plan", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestWindowFlags_Input(t *testing.T) {
	layout := time.DateTime

	in, err := (&windowFlags{}).input(layout)
	require.NoError(t, err)

	_, explicit := in.Explicit()
	assert.False(t, explicit)

	in, err = (&windowFlags{start: "2021-06-01 00:00:00", end: "2021-06-30 00:00:00"}).input(layout)
	require.NoError(t, err)

	w, explicit := in.Explicit()
	require.True(t, explicit)
	assert.Equal(t, time.Date(2021, 6, 30, 0, 0, 0, 0, time.UTC), w.End)
}

func TestConfigConversions(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.Dispatch = config.DispatchConfig{MaxFragmentSize: "64KiB", MalformedPolicy: "skip"}
	require.NoError(t, cfg.Dispatch.Validate())

	w := windowConfig(cfg)
	assert.Equal(t, "landsat_historic_last_date", w.Name)
	assert.Equal(t, window.UnitDay, w.Unit)
	assert.Equal(t, 30, w.Lookback)
	assert.Equal(t, "2021-07-01 00:00:00", w.InitialCheckpoint)

	p := processorConfig(cfg)
	assert.Equal(t, 64<<10, p.Dispatch.MaxFragmentBytes)
	assert.Equal(t, dispatch.PolicySkip, p.Dispatch.MalformedPolicy)
	assert.Equal(t, 15*time.Minute, p.Timeout)

	q := queryConfig(cfg)
	assert.Equal(t, "landsat-historic-inventory-bucket", q.Bucket)
	assert.Equal(t, "inventory_product_list.json.gz", q.Key)

	cfg.Inventory.SourceBucket = "usgs-landsat"
	inv := inventoryConfig(cfg)
	assert.Equal(t, "usgs-landsat", inv.SourceBucket)
	assert.Equal(t, "landsat-historic-inventory-bucket", inv.DestBucket)
	assert.Equal(t, "inventory_product_list.zip", inv.DestKey)
}

func TestQueryConfig_WindowPatternFollowsLayout(t *testing.T) {
	cfg := testutil.NewTestConfig()
	cfg.Window.Layout = "2006/01/02"
	cfg.Window.InitialCheckpoint = "2021/07/01"
	cfg.Query.WindowPattern = ""
	require.NoError(t, cfg.Validate())

	expr := queryConfig(cfg).Filters.WithDefaults().Expression("2021/06/02", "2021/07/01")
	assert.Contains(t, expr, "TO_TIMESTAMP('2021/06/02', 'y/MM/dd')")
	assert.Contains(t, expr, "TO_TIMESTAMP('2021/07/01', 'y/MM/dd')")
	assert.NotContains(t, expr, "HH:mm:ss")
}

func TestNewStore(t *testing.T) {
	infra := &infrastructure{aws: &awsclient.Clients{SSM: ssm.New(ssm.Options{Region: "us-west-2"})}}

	cfg := testutil.NewTestConfig()

	cfg.Window.Backend = config.BackendSSM
	store, err := newStore(testutil.NewTestLogger(), cfg, infra)
	require.NoError(t, err)
	assert.IsType(t, &checkpoint.SSMStore{}, store)

	cfg.Window.Backend = config.BackendRedis
	_, err = newStore(testutil.NewTestLogger(), cfg, infra)
	require.Error(t, err)
}

func TestBackfillJobs(t *testing.T) {
	infra := &infrastructure{aws: &awsclient.Clients{S3: s3.New(s3.Options{Region: "us-west-2"})}}

	tests := []struct {
		name      string
		schedule  bool
		inventory bool
		wantJobs  []string
	}{
		{name: "nothing enabled"},
		{name: "backfill only", schedule: true, wantJobs: []string{"backfill"}},
		{name: "both", schedule: true, inventory: true, wantJobs: []string{"backfill", "inventory"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testutil.NewTestConfig()
			cfg.Schedule = config.ScheduleConfig{Enabled: tt.schedule, Interval: time.Hour}
			cfg.Inventory.Enabled = tt.inventory
			cfg.Inventory.SourceBucket = "usgs-landsat"

			jobs, err := backfillJobs(testutil.NewTestLogger(), cfg, infra, nil)
			require.NoError(t, err)

			names := make([]string, 0, len(jobs))
			for _, job := range jobs {
				names = append(names, job.Name)
			}

			assert.Equal(t, len(tt.wantJobs), len(names))

			for i, want := range tt.wantJobs {
				assert.Equal(t, want, names[i])
			}
		})
	}
}

func TestRenderPlan(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)

	store.EXPECT().
		Get(gomock.Any(), "landsat_historic_last_date").
		Return("2021-07-01 00:00:00", nil)

	resolver := window.NewResolver(testutil.NewTestLogger(), windowConfig(testutil.NewTestConfig()), store)

	res, err := resolver.Resolve(testutil.NewTestContext(t), window.Checkpointed())
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	renderPlan(buf, res)

	out := buf.String()
	assert.Contains(t, strings.ToLower(out), "next window")
	assert.Contains(t, out, "2021-06-02 00:00:00")
	assert.Contains(t, out, "2021-07-01 00:00:00")
	assert.Contains(t, out, "2021-06-01 00:00:00")
}

func TestRenderReport(t *testing.T) {
	buf := new(bytes.Buffer)

	renderReport(buf, processor.Report{
		RunID:         "run-1",
		Mode:          "checkpoint",
		Start:         "2021-06-02 00:00:00",
		End:           "2021-07-01 00:00:00",
		NewCheckpoint: "2021-06-01 00:00:00",
		Committed:     true,
		Published:     42,
		Dispatch: dispatch.Result{
			Stats: dispatch.StatsEvent{BytesScanned: 1_000_000, BytesReturned: 2_000},
		},
		Duration: 1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, strings.ToLower(out), "run run-1")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "1.0 MB")
	assert.Contains(t, out, "2.0 kB")
	assert.Contains(t, out, "1.5s")
}
