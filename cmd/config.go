package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage repo-upgrade configuration",
	Long: `Manage repo-upgrade configuration settings.

Example:
  repo-upgrade config show
  repo-upgrade config set runner.concurrency 8`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

Available keys:
  locale              - Language setting
                        Values: auto, en-US, ko-KR, etc.
  prompt.assumeYes    - Skip confirmation prompts
                        Values: true, false
  runner.concurrency  - Repositories checked in parallel
                        Values: 1 or more
  metrics.listen      - Address to serve prometheus metrics on during
                        upgrades, empty to disable

Example:
  repo-upgrade config set locale ko-KR
  repo-upgrade config set metrics.listen 127.0.0.1:9310`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	fmt.Fprintln(cmdOut, "Configuration:")
	fmt.Fprintln(cmdOut, "----------------------------------------")
	fmt.Fprintf(cmdOut, "  locale: %s\n", cfg.Locale)
	fmt.Fprintf(cmdOut, "  prompt.assumeYes: %t\n", cfg.Prompt.AssumeYes)
	fmt.Fprintf(cmdOut, "  runner.concurrency: %d\n", cfg.Runner.Concurrency)
	fmt.Fprintf(cmdOut, "  metrics.listen: %s\n", cfg.Metrics.Listen)
	fmt.Fprintln(cmdOut)
	fmt.Fprintf(cmdOut, "  Repositories: %d tracked\n", len(cfg.Repositories))
	fmt.Fprintf(cmdOut, "  File: %s\n", config.ConfigPath())

	fmt.Fprintln(cmdOut)
	fmt.Fprintln(cmdOut, "Locale:")
	if cfg.Locale == "auto" {
		fmt.Fprintln(cmdOut, "  auto: System locale is auto-detected")
	} else {
		fmt.Fprintf(cmdOut, "  %s: Using fixed locale\n", cfg.Locale)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := config.Set(key, value); err != nil {
		return err
	}
	fmt.Fprintf(cmdOut, "%s set to '%s'.\n", key, value)
	return nil
}
