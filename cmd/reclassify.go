package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"bundlescan/internal/render"
	"bundlescan/internal/scanindex"
)

var reclassifyAuto bool
var reclassifyMaps []string

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify <bundle> [section] [category]",
	Short: "Move sections between semantic categories",
	Long: `Reclassify moves one named section into a different category, or with
--auto sweeps every unclassified section: explicit --map substring=category
rules are applied first, then high-confidence suggestions.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := bundlePath(args[0])
		if err != nil {
			return err
		}

		e := newEngine()
		if _, _, err := e.EnsureFileInitialized(path); err != nil {
			return err
		}

		if reclassifyAuto {
			mappings, err := parseMappings(reclassifyMaps)
			if err != nil {
				return err
			}
			res, err := e.BulkReclassifyUnknown(path, mappings)
			if err != nil {
				return err
			}
			render.FormatBulkResult(cmd.OutOrStdout(), res)
			return nil
		}

		if len(args) != 3 {
			return fmt.Errorf("reclassify needs <bundle> <section> <category>, or --auto")
		}
		cat, err := resolveCategory(args[2])
		if err != nil {
			return err
		}
		ok, err := e.ReclassifySection(path, args[1], cat)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no section named %q", args[1])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[1], cat)
		return nil
	},
}

// parseMappings turns repeated substring=category flags into pattern rules.
// Category names are resolved up front so a typo fails the whole run instead
// of silently skipping sections.
func parseMappings(raw []string) ([]scanindex.PatternMapping, error) {
	mappings := make([]scanindex.PatternMapping, 0, len(raw))
	for _, m := range raw {
		substr, catName, found := strings.Cut(m, "=")
		if !found || substr == "" || catName == "" {
			return nil, fmt.Errorf("malformed mapping %q, want substring=category", m)
		}
		cat, err := resolveCategory(catName)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, scanindex.PatternMapping{
			Substring: substr,
			Category:  cat.String(),
		})
	}
	return mappings, nil
}

func init() {
	reclassifyCmd.Flags().BoolVar(&reclassifyAuto, "auto", false, "Sweep all unclassified sections")
	reclassifyCmd.Flags().StringArrayVar(&reclassifyMaps, "map", nil, "substring=category rule for --auto (repeatable)")
	rootCmd.AddCommand(reclassifyCmd)
}
