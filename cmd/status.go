package cmd

import (
	"github.com/spf13/cobra"

	"bundlescan/internal/render"
)

var statusCmd = &cobra.Command{
	Use:   "status <bundle>",
	Short: "Show initialization status for a bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := bundlePath(args[0])
		if err != nil {
			return err
		}

		e := newEngine()
		render.FormatStatus(cmd.OutOrStdout(), path, e.GetInitializationStatus(path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
