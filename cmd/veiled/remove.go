package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adeonir/veiled/internal/ui"
)

var removeCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Stop managing a path and restore it to backups",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, _, err := newEngine(newLogger())
		if err != nil {
			fatal(err)
		}

		canonical, err := eng.Remove(args[0])
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s %s\n", ui.PassStyle.Render("Removed"), canonical)
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
