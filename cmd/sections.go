package cmd

import (
	"github.com/spf13/cobra"

	"bundlescan/internal/render"
	"bundlescan/internal/scanindex"
)

var sectionsCategory string
var sectionsPage int
var sectionsPageSize int
var sectionsUnknown bool

var sectionsCmd = &cobra.Command{
	Use:   "sections <bundle>",
	Short: "List indexed sections",
	Long: `Sections lists the indexed sections of a bundle one page at a time.
Pass --category to restrict the listing to one semantic category, or
--unknown to see only the sections that could not be classified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := bundlePath(args[0])
		if err != nil {
			return err
		}

		var cat *scanindex.Category
		switch {
		case sectionsUnknown:
			u := scanindex.Unknown
			cat = &u
		case sectionsCategory != "":
			c, err := resolveCategory(sectionsCategory)
			if err != nil {
				return err
			}
			cat = &c
		}

		e := newEngine()
		if _, _, err := e.EnsureFileInitialized(path); err != nil {
			return err
		}
		res, err := e.SearchSections(path, "", cat, sectionsPage, sectionsPageSize)
		if err != nil {
			return err
		}
		render.FormatSectionTable(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	sectionsCmd.Flags().StringVarP(&sectionsCategory, "category", "c", "", "Restrict to one category")
	sectionsCmd.Flags().BoolVar(&sectionsUnknown, "unknown", false, "List only unclassified sections")
	sectionsCmd.Flags().IntVarP(&sectionsPage, "page", "p", 1, "Page number")
	sectionsCmd.Flags().IntVar(&sectionsPageSize, "page-size", scanindex.DefaultPageSize, "Sections per page")
	rootCmd.AddCommand(sectionsCmd)
}
