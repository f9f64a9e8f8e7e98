package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/adeonir/veiled/internal/ui"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all paths excluded by veiled",
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
			fmt.Println(ui.MutedStyle.Render("No exclusions managed by veiled."))
			return
		}

		for _, e := range exclusions {
			parent, name := filepath.Split(e.Path)
			fmt.Printf("%s%s\n", ui.MutedStyle.Render(parent), name)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
