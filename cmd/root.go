package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"bundlescan/internal/config"
	"bundlescan/internal/engine"
	"bundlescan/internal/scanindex"
	"bundlescan/internal/version"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "bundlescan",
	Short: "Semantic index and cache for appliance support bundles",
	Long: `Bundlescan indexes large support-bundle text dumps without loading them
into memory. It detects section headers, classifies each section into a
semantic category, and precaches summaries for the categories that matter
during triage (system info, performance, licensing, security, core dumps,
network).`,
}

func init() {
	rootCmd.Version = version.Version
	rootCmd.SetVersionTemplate(fmt.Sprintf("bundlescan %s\n", version.String()))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newEngine builds an engine from environment configuration. The background
// eviction loop is not started: CLI invocations are one-shot.
func newEngine() *engine.Engine {
	logger := newLogger()
	return engine.New(config.Load(logger), logger)
}

func bundlePath(arg string) (string, error) {
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving bundle path: %w", err)
	}
	return abs, nil
}

// resolveCategory parses a category name, falling back to fuzzy matching so
// "perf" or "sys-info" resolve to the intended category.
func resolveCategory(input string) (scanindex.Category, error) {
	cat, err := scanindex.ParseCategory(input)
	if err == nil {
		return cat, nil
	}

	names := make([]string, 0, len(scanindex.Categories()))
	for _, c := range scanindex.Categories() {
		names = append(names, c.String())
	}
	matches := fuzzy.Find(input, names)
	if len(matches) == 0 {
		return scanindex.Unknown, err
	}
	return scanindex.ParseCategory(matches[0].Str)
}
