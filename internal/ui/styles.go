package ui

import "github.com/charmbracelet/lipgloss"

// Color palette. A single cyan accent keeps search output readable without
// turning the terminal into a fruit salad.
const (
	ColorCyan     = "51"  // Primary accent - matched terms, headers
	ColorCyanDim  = "30"  // Dimmed accent - labels, secondary emphasis
	ColorWhite    = "255" // Important values
	ColorGray     = "245" // Secondary text
	ColorDarkGray = "238" // Separators, de-emphasized text
	ColorGreen    = "41"  // Success
	ColorRed      = "196" // Errors
	ColorYellow   = "220" // Warnings
)

// Styles holds the lipgloss styles used across CLI output.
type Styles struct {
	Header  lipgloss.Style
	Term    lipgloss.Style
	Score   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Bar     lipgloss.Style
}

// DefaultStyles returns the styled set for interactive terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorCyan)),
		Term:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGreen)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyanDim)),
		Bar:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorCyan)),
	}
}

// NoColorStyles returns an unstyled set for plain output.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Term:    lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Bar:     lipgloss.NewStyle(),
	}
}

// GetStyles returns the style set for the given color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
