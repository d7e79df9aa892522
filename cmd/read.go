package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var readOffset int64
var readSize int

var readCmd = &cobra.Command{
	Use:   "read <bundle> [section]",
	Short: "Print section content",
	Long: `Read prints the full text of the named section, matched
case-insensitively against the index. With --offset and --size it instead
performs a raw bounded read at an absolute file offset.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := bundlePath(args[0])
		if err != nil {
			return err
		}

		e := newEngine()
		r, _, err := e.EnsureFileInitialized(path)
		if err != nil {
			return err
		}

		if readSize > 0 {
			text, err := r.ReadSectionByOffset(readOffset, readSize)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		}

		if len(args) != 2 {
			return fmt.Errorf("read needs a section name, or --offset and --size")
		}
		text, err := e.SectionContent(path, args[1])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	readCmd.Flags().Int64Var(&readOffset, "offset", 0, "Absolute byte offset for a raw read")
	readCmd.Flags().IntVar(&readSize, "size", 0, "Byte count for a raw read")
	rootCmd.AddCommand(readCmd)
}
