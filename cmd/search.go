package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/egoavara/repo-upgrade/internal/i18n"
	"github.com/egoavara/repo-upgrade/internal/repo"
	"github.com/egoavara/repo-upgrade/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search tracked repositories by name",
	Long: `Search tracked repositories using fuzzy matching on their names.

Example:
  repo-upgrade search docker`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := args[0]
	catalog := repo.GetCatalog()

	results := search.FuzzySearch(catalog.Names(), keyword)
	if len(results) == 0 {
		fmt.Fprintln(cmdOut, i18n.T("search.none", map[string]any{"Keyword": keyword}))
		return nil
	}

	fmt.Fprintln(cmdOut, i18n.T("search.results", map[string]any{"Count": len(results)}, len(results)))
	fmt.Fprintln(cmdOut)

	for _, res := range results {
		r, err := catalog.Get(res.Name)
		if err != nil {
			continue
		}
		fmt.Fprintf(cmdOut, "  %s\n", r.Name())
		fmt.Fprintf(cmdOut, "    %s\n", r.URL())
	}
	return nil
}
