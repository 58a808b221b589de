package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ethpandaops/landsat-historic/internal/processor"
	"github.com/ethpandaops/landsat-historic/internal/window"
)

// windowFlags are the optional explicit bounds of run and plan.
type windowFlags struct {
	start string
	end   string
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.start, "start", "", "explicit window start (window.layout); requires --end")
	cmd.Flags().StringVar(&f.end, "end", "", "explicit window end (window.layout); requires --start")
}

func (f *windowFlags) input(layout string) (window.Input, error) {
	return window.ParseTrigger(window.TriggerInput{StartDate: f.start, EndDate: f.end}, layout)
}

func runCmd(opts *rootOptions) *cobra.Command {
	flags := &windowFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one window and publish its scenes",
		Long: `Run processes the next checkpointed window and advances the checkpoint on
success. With --start and --end it replays that window instead and leaves the
checkpoint untouched.

Examples:
  landsat-historic run
  landsat-historic run --start "2021-06-01 00:00:00" --end "2021-06-30 00:00:00"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runOnce(ctx, opts.configPath, flags, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)

	return cmd
}

func runOnce(ctx context.Context, configPath string, flags *windowFlags, out io.Writer) error {
	logger := setupLogger()

	cfg, err := loadAndValidateConfig(logger, configPath)
	if err != nil {
		return err
	}

	in, err := flags.input(cfg.Window.Layout)
	if err != nil {
		return err
	}

	infra, err := setupInfrastructure(ctx, logger, cfg, false)
	if err != nil {
		return fmt.Errorf("infrastructure setup failed: %w", err)
	}
	defer infra.stop(logger)

	proc, err := newProcessor(logger, cfg, infra)
	if err != nil {
		return err
	}

	report, err := proc.Run(ctx, in)
	renderReport(out, report)

	return err
}

func planCmd(opts *rootOptions) *cobra.Command {
	flags := &windowFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the window the next run would process",
		Long: `Plan reads the checkpoint and prints the window, the query bounds and the
checkpoint a successful run would store. Nothing is queried or written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return planOnce(cmd.Context(), opts.configPath, flags, cmd.OutOrStdout())
		},
	}

	flags.register(cmd)

	return cmd
}

func planOnce(ctx context.Context, configPath string, flags *windowFlags, out io.Writer) error {
	logger := setupLogger()

	cfg, err := loadAndValidateConfig(logger, configPath)
	if err != nil {
		return err
	}

	in, err := flags.input(cfg.Window.Layout)
	if err != nil {
		return err
	}

	infra, err := setupInfrastructure(ctx, logger, cfg, false)
	if err != nil {
		return fmt.Errorf("infrastructure setup failed: %w", err)
	}
	defer infra.stop(logger)

	proc, err := newProcessor(logger, cfg, infra)
	if err != nil {
		return err
	}

	res, err := proc.Plan(ctx, in)
	if err != nil {
		return err
	}

	renderPlan(out, res)

	return nil
}

func syncInventoryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-inventory",
		Short: "Copy the USGS inventory object into the source bucket",
		Long: `Sync-inventory copies inventory.source_bucket/inventory.source_key into
source.bucket/inventory.dest_key. The USGS bucket is requester pays, so the
copy is billed to the configured AWS account.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := setupLogger()

			cfg, err := loadAndValidateConfig(logger, opts.configPath)
			if err != nil {
				return err
			}

			infra, err := setupInfrastructure(cmd.Context(), logger, cfg, false)
			if err != nil {
				return fmt.Errorf("infrastructure setup failed: %w", err)
			}
			defer infra.stop(logger)

			copier, err := newCopier(logger, cfg, infra)
			if err != nil {
				return err
			}

			res, err := copier.Sync(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "copied %s (etag %s, modified %s)\n",
				cfg.Inventory.DestKey, res.ETag, humanize.Time(res.LastModified))

			return nil
		},
	}
}

// renderPlan prints a resolution as a two column table.
func renderPlan(w io.Writer, res window.Resolution) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Next window")

	checkpoint := res.Checkpoint
	if checkpoint == "" {
		checkpoint = "-"
	}

	newCheckpoint := "unchanged"
	if res.Commits() {
		newCheckpoint = res.NewCheckpoint
	}

	tbl.AppendRows([]table.Row{
		{"Checkpoint", checkpoint},
		{"Start", res.Start},
		{"End", res.End},
		{"New checkpoint", newCheckpoint},
	})

	tbl.Render()
}

// renderReport prints the outcome of a run, including partial counts of a
// failed one.
func renderReport(w io.Writer, report processor.Report) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle("Run " + report.RunID)

	committed := "no"
	if report.Committed {
		committed = report.NewCheckpoint
	}

	stats := report.Dispatch.Stats

	tbl.AppendRows([]table.Row{
		{"Mode", report.Mode},
		{"Window", report.Start + " .. " + report.End},
		{"Published", report.Published},
		{"Skipped", report.Skipped},
		{"Reassembled", report.Dispatch.Reassembled},
		{"Scanned", humanize.Bytes(uint64(max(stats.BytesScanned, 0)))},
		{"Returned", humanize.Bytes(uint64(max(stats.BytesReturned, 0)))},
		{"Committed", committed},
		{"Duration", report.Duration.Round(time.Millisecond).String()},
	})

	tbl.Render()
}
