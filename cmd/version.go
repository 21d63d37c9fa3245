package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmdOut, "repo-upgrade %s\n", version.Version)
		if version.GitCommit != "" {
			fmt.Fprintf(cmdOut, "  commit: %s\n", version.GitCommit)
		}
		if version.BuildDate != "" {
			fmt.Fprintf(cmdOut, "  built:  %s\n", version.BuildDate)
		}
	},
}
