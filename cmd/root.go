package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/juju/loggo"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/config"
)

var logger = loggo.GetLogger("repoupgrade.cmd")

// cmdOut receives command output
var cmdOut io.Writer = os.Stdout

var (
	verbose     bool
	assumeYes   bool
	plain       bool
	metricsAddr string

	rootCmd = &cobra.Command{
		Use:           "repo-upgrade",
		Short:         "Upgrade tracked git repositories with live progress",
		SilenceErrors: true,
		SilenceUsage:  true,
		Long: `repo-upgrade keeps a set of git checkouts up to date.

It tracks repositories, checks them against their upstream, and
upgrades one or all of them while streaming the job's log and
progress. An unfinished or stuck upgrade can be reset, which stops
the job and rolls repositories back.

Commands:
  list     Show tracked repositories and whether they are behind
  add      Start tracking a repository
  remove   Stop tracking a repository
  search   Find tracked repositories by name
  upgrade  Upgrade one or all repositories
  reset    Reset an unfinished upgrade
  config   Manage configuration`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(os.Stderr)
		},
	}
)

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmation prompts")
	rootCmd.PersistentFlags().BoolVar(&plain, "plain", false, "disable the interactive view")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address during upgrades")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func setupLogging(out io.Writer) error {
	level := loggo.WARNING
	if verbose {
		level = loggo.DEBUG
	}
	writer := loggo.NewSimpleWriter(out, logFormatter)
	if _, err := loggo.ReplaceDefaultWriter(writer); err != nil {
		return err
	}
	return loggo.ConfigureLoggers(fmt.Sprintf("<root>=%s", level.String()))
}

// logToFile moves logging off the terminal while a full screen view runs
func logToFile() (func(), error) {
	if err := config.EnsureDir(config.AppDir()); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(config.AppDir(), "repo-upgrade.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(f); err != nil {
		f.Close()
		return nil, err
	}
	return func() {
		_ = setupLogging(os.Stderr)
		f.Close()
	}, nil
}

func logFormatter(entry loggo.Entry) string {
	ts := entry.Timestamp.Format(time.RFC3339)
	return fmt.Sprintf("%s %s %s %s", ts, entry.Level, entry.Module, entry.Message)
}

// interactive reports whether the bubbletea views can be used
func interactive() bool {
	if plain {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) && isatty.IsTerminal(os.Stdin.Fd())
}
