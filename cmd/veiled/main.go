package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version and Build are stamped at link time:
//
//	go build -ldflags "-X main.Version=0.4.0 -X main.Build=abc1234"
var (
	Version = "dev"
	Build   = "unknown"
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "veiled",
	Short: "Exclude development artifacts from Time Machine backups",
	Long: `veiled keeps dependency caches and build output out of Time Machine.

It scans your project directories for artifact folders (node_modules,
target, .venv, ...), asks git for ignored directories inside repositories,
and marks everything it finds as excluded via tmutil. A daily LaunchAgent
keeps the exclusions current as projects come and go.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("veiled version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help() // Help() always returns nil for cobra commands
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose output")
	rootCmd.Flags().Bool("version", false, "print version information")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
