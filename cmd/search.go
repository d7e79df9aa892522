package cmd

import (
	"github.com/spf13/cobra"

	"bundlescan/internal/render"
	"bundlescan/internal/scanindex"
)

var searchCategory string
var searchPage int
var searchPageSize int
var searchCaseSensitive bool

var searchCmd = &cobra.Command{
	Use:   "search <bundle> <query>",
	Short: "Search section names",
	Long: `Search matches the query against section names, case-insensitively,
optionally restricted to one category. Results are paginated.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := bundlePath(args[0])
		if err != nil {
			return err
		}

		var cat *scanindex.Category
		if searchCategory != "" {
			c, err := resolveCategory(searchCategory)
			if err != nil {
				return err
			}
			cat = &c
		}

		e := newEngine()
		r, _, err := e.EnsureFileInitialized(path)
		if err != nil {
			return err
		}

		if searchCaseSensitive {
			// Exact-case substring search bypasses the paginated cache.
			ix, err := r.Index()
			if err != nil {
				return err
			}
			hits := ix.FindSectionsContaining(args[1], true)
			render.FormatSectionTable(cmd.OutOrStdout(), scanindex.SearchResult{
				Sections:   hits,
				Page:       1,
				PageSize:   len(hits),
				TotalCount: len(hits),
				TotalPages: 1,
			})
			return nil
		}

		res, err := e.SearchSections(path, args[1], cat, searchPage, searchPageSize)
		if err != nil {
			return err
		}
		render.FormatSectionTable(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "Restrict to one category")
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "Page number")
	searchCmd.Flags().IntVar(&searchPageSize, "page-size", scanindex.DefaultPageSize, "Sections per page")
	searchCmd.Flags().BoolVar(&searchCaseSensitive, "case-sensitive", false, "Match the query with exact case")
	rootCmd.AddCommand(searchCmd)
}
