package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bundlescan/internal/engine"
	"bundlescan/internal/render"
)

var analyzeWatch bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <bundle>",
	Short: "Index a bundle and precache its category summaries",
	Long: `Analyze runs the full pipeline against a bundle file: section indexing,
semantic categorization, and the per-category precache stages. The summary
box flags CPU spikes, expired licenses, crash evidence, and network or
security findings.

With --watch, analyze stays running, re-analyzes the bundle whenever it is
rewritten on disk, and evicts idle state in the background.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := bundlePath(args[0])
		if err != nil {
			return err
		}

		e := newEngine()
		if analyzeWatch {
			if err := e.EnableWatch(); err != nil {
				return err
			}
			e.Start()
			defer e.Stop()
		}

		_, snap, err := e.EnsureFileInitialized(path)
		if err != nil {
			return err
		}
		render.FormatAnalysisSummary(cmd.OutOrStdout(), path, snap)

		if !analyzeWatch {
			return nil
		}
		return watchLoop(cmd, e, path)
	},
}

// watchLoop re-analyzes and re-renders whenever the watcher invalidates the
// path, until interrupted.
func watchLoop(cmd *cobra.Command, e *engine.Engine, path string) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			if e.GetInitializationStatus(path).State != engine.StateNotStarted {
				continue
			}
			_, snap, err := e.EnsureFileInitialized(path)
			if err != nil {
				render.FormatError(cmd.ErrOrStderr(), err)
				continue
			}
			render.FormatAnalysisSummary(cmd.OutOrStdout(), path, snap)
		}
	}
}

func init() {
	analyzeCmd.Flags().BoolVarP(&analyzeWatch, "watch", "w", false, "Stay running and re-analyze on file change")
	rootCmd.AddCommand(analyzeCmd)
}
