package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adeonir/veiled/internal/ui"
)

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Add a directory to the custom exclusion list",
	Long: `Exclude a directory the scanner would never pick up on its own and
remember it in the config, so every later run keeps it excluded.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		eng, _, err := newEngine(newLogger())
		if err != nil {
			fatal(err)
		}

		canonical, err := eng.Add(args[0])
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%s %s\n", ui.PassStyle.Render("Added"), canonical)
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
