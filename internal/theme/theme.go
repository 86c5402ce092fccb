package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
)

// HeaderStyle is used for section headers.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// ColumnStyle is the header row of a table.
var ColumnStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGray)

// HelpStyle is used for hints and empty-state text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// AccountStyle highlights account names.
var AccountStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// Cell returns a style that pads its content to width.
func Cell(width int) lipgloss.Style {
	return lipgloss.NewStyle().Width(width)
}

// CycleStyle returns a color-coded style for a poll cycle outcome.
func CycleStyle(advanced, errors int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch {
	case errors > 0 && advanced == 0:
		return base.Foreground(ColorRed)
	case errors > 0:
		return base.Foreground(ColorYellow)
	case advanced > 0:
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}
