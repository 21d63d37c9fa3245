package cmd

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/git"
	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/repo"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

var (
	resetAll bool
)

var resetCmd = &cobra.Command{
	Use:   "reset [name]",
	Short: "Reset an unfinished upgrade",
	Long: `Reset an upgrade that failed or was interrupted.

Repositories moved by the unfinished upgrade are rolled back to the
commit they were at before it started. You are asked to confirm first
unless --yes is given.

Example:
  repo-upgrade reset discourse
  repo-upgrade reset --all --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetAll, "all", "a", false, "reset every repository")
}

func runReset(cmd *cobra.Command, args []string) error {
	catalog := repo.GetCatalog()

	targets, err := selectTargets(catalog, args, resetAll, false)
	if err != nil {
		return err
	}

	s, err := newSession(catalog, git.NewClient(), targets, newPrompter())
	if err != nil {
		return err
	}
	return resetSession(cmd.Context(), s)
}

// resetSession resets the session's upgrade and reports the outcome
func resetSession(ctx context.Context, s *session) error {
	var reset atomic.Bool
	s.coordinator.OnChange(func(upgrade.State) { reset.Store(true) })
	defer s.coordinator.OnChange(nil)

	if err := s.coordinator.ResetUpgrade(ctx); err != nil {
		return err
	}
	if !reset.Load() {
		fmt.Fprintln(cmdOut, i18n.T("reset.cancelled", nil))
		return nil
	}
	fmt.Fprintln(cmdOut, i18n.T("reset.done", nil))
	return nil
}
