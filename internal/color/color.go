// Package color provides consistent terminal styling for stackctl's
// human-facing output. Colors are semantic: success for healthy services,
// warning for transitional states, error for failures, muted for
// de-emphasized detail.
package color

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
	Bold    lipgloss.Style
)

func init() {
	Initialize(false)
}

// Initialize sets up the style palette. With noColor set (the --no-color
// flag or a NO_COLOR environment), all styles render plain text.
func Initialize(noColor bool) {
	if noColor {
		plain := lipgloss.NewStyle()
		Success, Warning, Error, Muted, Bold = plain, plain, plain, plain, plain
		return
	}

	Success = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"})
	Warning = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "130", Dark: "214"})
	Error = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}).Bold(true)
	Muted = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "243", Dark: "245"})
	Bold = lipgloss.NewStyle().Bold(true)
}
