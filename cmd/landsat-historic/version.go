package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethpandaops/landsat-historic/internal/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Get()

			fmt.Fprintf(cmd.OutOrStdout(), "landsat-historic %s (commit: %s, built: %s, %s)\n",
				info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
		},
	}
}
