package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adeonir/veiled/internal/daemon"
	"github.com/adeonir/veiled/internal/disksize"
	"github.com/adeonir/veiled/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon state and exclusion stats",
	Run: func(cmd *cobra.Command, args []string) {
		eng, _, err := newEngine(newLogger())
		if err != nil {
			fatal(err)
		}

		reg, err := eng.Status()
		if err != nil {
			fatal(err)
		}

		installed, err := daemon.IsInstalled()
		if err != nil {
			fatal(err)
		}
		switch {
		case installed && daemon.IsRunning():
			fmt.Printf("Daemon: %s\n", ui.PassStyle.Render("active"))
		case installed:
			fmt.Printf("Daemon: %s\n", ui.WarnStyle.Render("installed, not loaded"))
		default:
			fmt.Printf("Daemon: %s\n", ui.MutedStyle.Render("not installed"))
		}

		count := len(reg.Exclusions)
		if count == 0 {
			fmt.Println(ui.MutedStyle.Render("No exclusions managed by veiled."))
			return
		}

		verb := "are"
		if count == 1 {
			verb = "is"
		}
		fmt.Printf("%s %s excluded by veiled (%s saved)\n",
			ui.AccentStyle.Render(fmt.Sprintf("%d", count)),
			fmt.Sprintf("%s %s", ui.Pluralize(count, "path"), verb),
			disksize.Format(reg.SavedBytes))

		if reg.LastChecked != nil {
			fmt.Printf("Last checked: %s\n", ui.MutedStyle.Render(reg.LastChecked.Local().Format("2006-01-02 15:04")))
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
