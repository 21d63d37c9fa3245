package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/git"
	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/repo"
)

var (
	listRefresh bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tracked repositories",
	Long: `List all tracked repositories.

With --refresh each repository is fetched and compared with its
upstream first.

Example:
  repo-upgrade list
  repo-upgrade list --refresh`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listRefresh, "refresh", "r", false, "check repositories against their upstream")
}

func runList(cmd *cobra.Command, args []string) error {
	catalog := repo.GetCatalog()
	if listRefresh {
		refreshCatalog(cmd.Context(), catalog)
	}
	printRepos(catalog, listRefresh)
	return nil
}

func printRepos(catalog *repo.Catalog, checked bool) {
	repos := catalog.List()

	fmt.Fprintln(cmdOut, i18n.T("list.header", nil))
	fmt.Fprintln(cmdOut, strings.Repeat("-", 40))

	if len(repos) == 0 {
		fmt.Fprintln(cmdOut, i18n.T("list.empty", nil))
		return
	}

	for _, r := range repos {
		fmt.Fprintf(cmdOut, "  %s", r.Name())
		switch {
		case r.Unfinished():
			fmt.Fprintf(cmdOut, "  [%s]", i18n.T("list.unfinished", nil))
		case !checked:
		case r.UpToDate():
			fmt.Fprintf(cmdOut, "  [%s]", i18n.T("list.upToDate", nil))
		default:
			fmt.Fprintf(cmdOut, "  [%s]", i18n.T("list.behind", nil))
		}
		fmt.Fprintln(cmdOut)

		fmt.Fprintf(cmdOut, "    URL: %s\n", r.URL())
		fmt.Fprintf(cmdOut, "    Path: %s\n", r.Path())
		if r.Branch() != "" {
			fmt.Fprintf(cmdOut, "    Branch: %s\n", r.Branch())
		}
		if checked {
			latest, _ := r.LatestVersion()
			fmt.Fprintf(cmdOut, "    Installed: %s\n", git.ShortCommit(r.Version()))
			fmt.Fprintf(cmdOut, "    Latest: %s\n", git.ShortCommit(latest))
			if checkedAt := r.CheckedAt(); !checkedAt.IsZero() {
				fmt.Fprintf(cmdOut, "    Checked: %s\n", checkedAt.Format(time.RFC3339))
			}
		}
		fmt.Fprintf(cmdOut, "    Updated: %s\n", catalog.LastUpdated(r.Name()))
		fmt.Fprintln(cmdOut)
	}
}
