package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/config"
	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/repo"
)

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm", "del"},
	Short:   "Stop tracking a repository",
	Long: `Stop tracking a repository.

Checkouts cloned by 'repo-upgrade add' are deleted. Checkouts added
with --path are left in place.

Example:
  repo-upgrade remove docker_manager`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	catalog := repo.GetCatalog()

	r, err := lookupRepo(catalog, args[0])
	if err != nil {
		return err
	}

	if err := catalog.Remove(r.Name()); err != nil {
		return err
	}

	if ownedCheckout(r.Path()) {
		if err := os.RemoveAll(r.Path()); err != nil {
			fmt.Fprintf(cmdOut, "Warning: failed to remove directory %s: %v\n", r.Path(), err)
		}
	}

	fmt.Fprintln(cmdOut, i18n.T("repo.removed", map[string]any{"Name": r.Name()}))
	return nil
}

// ownedCheckout reports whether path was cloned into the data directory
func ownedCheckout(path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(config.RepositoriesDir(), path)
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}
