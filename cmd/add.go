package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/config"
	"github.com/egoavara/repo-upgrade/internal/git"
	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/repo"
)

var (
	addName   string
	addBranch string
	addPath   string
)

var addCmd = &cobra.Command{
	Use:   "add <git-url>",
	Short: "Start tracking a repository",
	Long: `Start tracking a git repository.

The repository is cloned into the repo-upgrade data directory unless
--path points at an existing checkout.

Example:
  repo-upgrade add https://github.com/discourse/docker_manager
  repo-upgrade add git@github.com:org/app.git --branch stable
  repo-upgrade add https://github.com/org/app --path /var/www/app`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addName, "name", "", "name to track the repository under (default: from URL)")
	addCmd.Flags().StringVarP(&addBranch, "branch", "b", "", "branch to follow (default: remote HEAD)")
	addCmd.Flags().StringVar(&addPath, "path", "", "use an existing checkout instead of cloning")
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	url := args[0]

	name := addName
	if name == "" {
		name = extractRepoName(url)
	}
	if name == "" {
		return errors.NotValidf("repository name from URL %q", url)
	}

	catalog := repo.GetCatalog()
	if _, err := catalog.Get(name); err == nil {
		return errors.New(i18n.T("repo.alreadyExists", map[string]any{"Name": name}))
	}

	gitClient := git.NewClient()
	destPath := addPath
	cloned := false

	if destPath != "" {
		if !gitClient.IsGitRepository(ctx, destPath) {
			return errors.NotValidf("%s is not a git checkout", destPath)
		}
	} else {
		if err := config.EnsureDir(config.RepositoriesDir()); err != nil {
			return err
		}
		destPath = filepath.Join(config.RepositoriesDir(), name)

		fmt.Fprintf(cmdOut, "Cloning %s...\n", url)
		if err := gitClient.Clone(ctx, url, destPath, addBranch); err != nil {
			var authErr *git.AuthError
			if errors.As(err, &authErr) {
				return errors.New(i18n.T("git.authFailed", map[string]any{"URL": authErr.URL}))
			}
			return errors.New(i18n.T("git.cloneFailed", map[string]any{"Error": err.Error()}))
		}
		cloned = true
	}

	if _, err := catalog.Add(name, url, addBranch, destPath); err != nil {
		if cloned {
			os.RemoveAll(destPath)
		}
		return err
	}

	fmt.Fprintln(cmdOut, i18n.T("repo.added", map[string]any{"Name": name}))
	return nil
}

// extractRepoName extracts the repository name from a git URL
func extractRepoName(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")

	// https://github.com/org/repo
	// git@github.com:org/repo
	// github.com/org/repo
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return url
}
