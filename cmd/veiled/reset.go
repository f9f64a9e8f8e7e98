package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/adeonir/veiled/internal/ui"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all exclusions managed by veiled",
	Long: `Clear the Time Machine exclusion mark from every path veiled manages
and empty the registry. Exclusions set by other means are untouched.`,
	Run: func(cmd *cobra.Command, args []string) {
		eng, _, err := newEngine(newLogger())
		if err != nil {
			fatal(err)
		}

		exclusions, err := eng.List()
		if err != nil {
			fatal(err)
		}
		if len(exclusions) == 0 {
			fmt.Println(ui.MutedStyle.Render("No exclusions to remove."))
			return
		}

		if !resetYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				fatal(fmt.Errorf("refusing to reset %s without --yes on a non-interactive run",
					ui.CountNoun(len(exclusions), "exclusion")))
			}
			var confirmed bool
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Remove %s?", ui.CountNoun(len(exclusions), "exclusion"))).
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				fatal(err)
			}
			if !confirmed {
				fmt.Println(ui.MutedStyle.Render("Aborted."))
				return
			}
		}

		removed, err := eng.Reset()
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s %s\n", ui.PassStyle.Render("Removed"), ui.CountNoun(removed, "exclusion"))
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "skip confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}
