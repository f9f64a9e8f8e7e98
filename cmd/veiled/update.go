package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adeonir/veiled/internal/daemon"
	"github.com/adeonir/veiled/internal/ui"
	"github.com/adeonir/veiled/internal/updater"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the binary to the latest release",
	Run: func(cmd *cobra.Command, args []string) {
		res, err := updater.New(Version).Check()
		if err != nil {
			fatal(err)
		}
		if !res.Updated {
			fmt.Println(ui.MutedStyle.Render("Already up to date."))
			return
		}

		fmt.Printf("%s %s -> %s\n", ui.PassStyle.Render("Updated"), res.OldVersion, res.NewVersion)

		installed, err := daemon.IsInstalled()
		if err == nil && installed {
			if err := daemon.Restart(); err != nil {
				fmt.Fprintf(os.Stderr, "%s daemon restart failed: %v\n", color.YellowString("warning:"), err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
