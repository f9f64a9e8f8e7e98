package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adeonir/veiled/internal/daemon"
	"github.com/adeonir/veiled/internal/ui"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Deactivate the background scan and remove the LaunchAgent",
	Run: func(cmd *cobra.Command, args []string) {
		installed, err := daemon.IsInstalled()
		if err != nil {
			fatal(err)
		}
		if !installed {
			fmt.Println(ui.MutedStyle.Render("Daemon is not installed."))
			return
		}

		if err := daemon.Uninstall(); err != nil {
			fatal(err)
		}
		fmt.Printf("%s background scan\n", ui.PassStyle.Render("Deactivated"))
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}
