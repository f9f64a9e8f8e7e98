package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adeonir/veiled/internal/daemon"
	"github.com/adeonir/veiled/internal/tmutil"
	"github.com/adeonir/veiled/internal/ui"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Activate the daily background scan",
	Long: `Install a LaunchAgent that runs 'veiled run' every day at 03:00 and
trigger an initial scan right away.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := tmutil.CheckAccess(); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.YellowString("warning:"), err)
		}

		installed, err := daemon.IsInstalled()
		if err != nil {
			fatal(err)
		}
		if installed {
			fmt.Println(ui.MutedStyle.Render("Daemon already active."))
			return
		}

		binary, err := os.Executable()
		if err != nil {
			fatal(err)
		}
		plist, err := daemon.GeneratePlist(binary)
		if err != nil {
			fatal(err)
		}
		if err := daemon.Install(plist); err != nil {
			fatal(err)
		}
		if err := daemon.Kickstart(); err != nil {
			fmt.Fprintf(os.Stderr, "%s initial scan not triggered: %v\n", color.YellowString("warning:"), err)
		}

		fmt.Printf("%s daily scan at 03:00\n", ui.PassStyle.Render("Activated"))
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
