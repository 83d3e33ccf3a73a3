package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set through -ldflags "-X main.version=..." at release time.
var (
	version = "0.1.0"
	commit  = "none"
	date    = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", cmd.Root().Name(), cmd.Root().Version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
