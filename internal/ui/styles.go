// Package ui provides terminal styling for veiled CLI output.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors, adaptive for light/dark terminals.
var (
	ColorPass = lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	}
	ColorWarn = lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	}
	ColorMuted = lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	}
	ColorAccent = lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	}
)

// Status styles - consistent across all commands.
var (
	PassStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorPass)
	WarnStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorWarn)
	MutedStyle  = lipgloss.NewStyle().Foreground(ColorMuted)
	AccentStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
)

// Pluralize returns word with a plural "s" when count is not one.
func Pluralize(count int, word string) string {
	if count == 1 {
		return word
	}
	return word + "s"
}

// CountNoun formats "3 paths" / "1 path".
func CountNoun(count int, word string) string {
	return fmt.Sprintf("%d %s", count, Pluralize(count, word))
}
