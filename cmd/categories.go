package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"bundlescan/internal/render"
	"bundlescan/internal/scanindex"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories [bundle]",
	Short: "List semantic categories",
	Long: `Categories lists every semantic category. With a bundle argument it
also shows how many sections of the bundle fall into each one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			for _, cat := range scanindex.Categories() {
				fmt.Fprintln(cmd.OutOrStdout(), cat)
			}
			return nil
		}

		path, err := bundlePath(args[0])
		if err != nil {
			return err
		}
		e := newEngine()
		_, snap, err := e.EnsureFileInitialized(path)
		if err != nil {
			return err
		}
		render.FormatCategories(cmd.OutOrStdout(), snap.Semantic.PerCategory)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
}
