package cmd

import (
	"context"
	"fmt"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/git"
	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/progress"
	"github.com/egoavara/repo-upgrade/internal/repo"
	"github.com/egoavara/repo-upgrade/internal/tui"
	"github.com/egoavara/repo-upgrade/internal/upgrade"
)

var (
	upgradeAll bool
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade [name]",
	Short: "Upgrade one or all tracked repositories",
	Long: `Upgrade a tracked repository, or every repository that is behind.

In a terminal an interactive view shows the job's progress and log:
  s  start the upgrade
  r  reset a stuck or failed upgrade
  q  quit

Without a name or --all, a picker lets you choose repositories.
With --plain, or when not attached to a terminal, the upgrade starts
immediately and its log is printed as it arrives.

Example:
  repo-upgrade upgrade discourse
  repo-upgrade upgrade --all
  repo-upgrade upgrade --all --plain`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpgrade,
}

func init() {
	upgradeCmd.Flags().BoolVarP(&upgradeAll, "all", "a", false, "upgrade every repository that is behind")
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	catalog := repo.GetCatalog()

	refreshCatalog(ctx, catalog)

	targets, err := selectTargets(catalog, args, upgradeAll, interactive())
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	if interactive() {
		return runUpgradeView(ctx, catalog, targets)
	}
	return runUpgradePlain(ctx, catalog, targets)
}

// selectTargets resolves the repositories a command works on
func selectTargets(catalog *repo.Catalog, args []string, all, pick bool) ([]*repo.Repo, error) {
	switch {
	case len(args) == 1:
		r, err := lookupRepo(catalog, args[0])
		if err != nil {
			return nil, err
		}
		return []*repo.Repo{r}, nil

	case all:
		repos := catalog.List()
		if len(repos) == 0 {
			return nil, errors.New(i18n.T("list.empty", nil))
		}
		return repos, nil

	case pick:
		return pickTargets(catalog)
	}

	return nil, errors.New(i18n.T("upgrade.noTarget", nil))
}

func pickTargets(catalog *repo.Catalog) ([]*repo.Repo, error) {
	repos := catalog.List()
	if len(repos) == 0 {
		return nil, errors.New(i18n.T("list.empty", nil))
	}

	items := make([]tui.PickerItem, len(repos))
	for i, r := range repos {
		latest, _ := r.LatestVersion()
		items[i] = tui.PickerItem{
			Name:     r.Name(),
			URL:      r.URL(),
			Path:     r.Path(),
			Version:  r.Version(),
			Latest:   latest,
			UpToDate: r.UpToDate(),
		}
	}

	result, err := tui.RunPicker(items)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if result.Cancelled {
		return nil, nil
	}

	targets := make([]*repo.Repo, 0, len(result.Names))
	for _, name := range result.Names {
		r, err := catalog.Get(name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		targets = append(targets, r)
	}
	return targets, nil
}

func runUpgradeView(ctx context.Context, catalog *repo.Catalog, targets []*repo.Repo) error {
	var prompter upgrade.Prompter
	viewPrompter := &tui.ViewPrompter{}
	if confirmByDefault() {
		prompter = tui.StaticPrompter{Accept: true}
	} else {
		prompter = viewPrompter
	}

	s, err := newSession(catalog, git.NewClient(), targets, prompter)
	if err != nil {
		return err
	}
	defer s.serveMetrics()()

	restore, err := logToFile()
	if err != nil {
		logger.Warningf("logging to file: %v", err)
	} else {
		defer restore()
	}

	if err := s.coordinator.Attach(); err != nil {
		return errors.Trace(err)
	}
	defer s.coordinator.Detach()

	return tui.RunUpgradeView(ctx, s.coordinator, viewPrompter)
}

func runUpgradePlain(ctx context.Context, catalog *repo.Catalog, targets []*repo.Repo) error {
	s, err := newSession(catalog, git.NewClient(), targets, newPrompter())
	if err != nil {
		return err
	}
	defer s.serveMetrics()()

	return upgradePlain(ctx, s)
}

// upgradePlain starts the session's upgrade and prints it until it ends
func upgradePlain(ctx context.Context, s *session) error {
	c := s.coordinator
	fmt.Fprintln(cmdOut, c.Title())

	if c.IsUpToDate() {
		fmt.Fprintln(cmdOut, i18n.T("upgrade.upToDate", nil))
		return nil
	}
	if c.IsRunning() {
		return errors.New(i18n.T("upgrade.alreadyRunning", nil))
	}

	printer := tui.NewPlainPrinter(cmdOut)
	c.OnChange(printer.Update)
	if err := c.Attach(); err != nil {
		return errors.Trace(err)
	}
	defer c.Detach()

	if err := c.Start(ctx); err != nil {
		return errors.Trace(err)
	}

	status, err := printer.Wait(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	if err := s.runner.Wait(ctx); err != nil {
		return errors.Trace(err)
	}
	if status == progress.StatusFailed {
		return errors.New(i18n.T("upgrade.status.failed", nil))
	}
	return nil
}
