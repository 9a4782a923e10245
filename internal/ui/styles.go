package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors
	WarningColor = lipgloss.Color("#FFA500") // Orange - non-finite values
	MutedColor   = lipgloss.Color("#626262") // Gray - keys, secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - values
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
	KeyWidth         = 24  // Width of the key column in record blocks
)

// Styles is the set of styles a Printer renders with. Styles are bound to
// a renderer so that colour is only emitted to terminals.
type Styles struct {
	Station   lipgloss.Style
	Kind      lipgloss.Style
	Timestamp lipgloss.Style
	Key       lipgloss.Style
	Value     lipgloss.Style
	Missing   lipgloss.Style
	Error     lipgloss.Style
	Success   lipgloss.Style
	Muted     lipgloss.Style
	Border    lipgloss.Style
}

// NewStyles creates the styles for a renderer
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Station:   r.NewStyle().Foreground(PrimaryColor).Bold(true),
		Kind:      r.NewStyle().Foreground(TextColor),
		Timestamp: r.NewStyle().Foreground(MutedColor),
		Key:       r.NewStyle().Foreground(MutedColor).Width(KeyWidth).PaddingLeft(2),
		Value:     r.NewStyle().Foreground(TextColor),
		Missing:   r.NewStyle().Foreground(WarningColor).Italic(true),
		Error:     r.NewStyle().Foreground(ErrorColor).Bold(true),
		Success:   r.NewStyle().Foreground(SuccessColor).Bold(true),
		Muted:     r.NewStyle().Foreground(MutedColor),
		Border:    r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(PrimaryColor),
	}
}

// Markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
)

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// GetTerminalWidth returns the current terminal width, with fallback
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}
