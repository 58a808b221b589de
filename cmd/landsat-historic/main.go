// Package main provides the landsat-historic command.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "landsat-historic",
		Short: "Backfill historic Landsat scenes into the catalog topic",
		Long: `landsat-historic walks the Landsat inventory backwards in date windows and
publishes one notification per matching scene.

Commands:
  serve           HTTP API plus the scheduled backfill loop
  run             Process one window now
  plan            Show the next window without side effects
  sync-inventory  Copy the USGS inventory into the catalog bucket`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config.yaml", "Path to configuration file")

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(runCmd(opts))
	rootCmd.AddCommand(planCmd(opts))
	rootCmd.AddCommand(syncInventoryCmd(opts))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}
