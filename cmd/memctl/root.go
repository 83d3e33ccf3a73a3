package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/joshuapare/memkit/internal/logger"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	logLevel string
	langTag  string
)

var rootCmd = &cobra.Command{
	Use:   "memctl",
	Short: "Exercise and inspect memkit allocators",
	Long: `memctl drives the memkit allocators through synthetic game-engine
workloads (per-frame scratch data, particle pools, general heaps) and prints
their counters: bytes in use, live allocations, free regions, growth and
relocation events.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log allocator events to stderr (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&langTag, "lang", "en", "Language used to format numbers")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging replaces the allocator logger when --log-level is given.
// Without the flag, MEMKIT_LOG still applies.
func setupLogging() error {
	if logLevel == "" {
		return nil
	}
	level, ok := logger.ParseLevel(logLevel)
	if !ok {
		return fmt.Errorf("invalid --log-level %q", logLevel)
	}
	logger.Init(logger.Options{Enabled: true, Writer: os.Stderr, Level: level, JSON: jsonOut})
	return nil
}

// outputLanguage parses --lang.
func outputLanguage() (language.Tag, error) {
	tag, err := language.Parse(langTag)
	if err != nil {
		return language.Und, fmt.Errorf("invalid --lang %q: %w", langTag, err)
	}
	return tag, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
