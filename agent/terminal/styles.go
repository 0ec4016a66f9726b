package terminal

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Color palette (Catppuccin Mocha)
var (
	colorPrimary  = lipgloss.Color("#cba6f7") // Mauve
	colorBlue     = lipgloss.Color("#89b4fa") // Blue
	colorGreen    = lipgloss.Color("#a6e3a1") // Green
	colorRed      = lipgloss.Color("#f38ba8") // Red
	colorYellow   = lipgloss.Color("#f9e2af") // Yellow
	colorSubtext0 = lipgloss.Color("#a6adc8") // Subtext0
	colorText     = lipgloss.Color("#cdd6f4") // Text
)

type styles struct {
	step     lipgloss.Style
	toolCall lipgloss.Style
	result   lipgloss.Style
	thinking lipgloss.Style
	answer   lipgloss.Style
	err      lipgloss.Style
	vision   lipgloss.Style
	prompt   lipgloss.Style
}

// newStyles binds styles to w so color output follows w's capabilities.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		step:     r.NewStyle().Foreground(colorSubtext0),
		toolCall: r.NewStyle().Foreground(colorBlue).Bold(true),
		result:   r.NewStyle().Foreground(colorSubtext0),
		thinking: r.NewStyle().Foreground(colorPrimary).Italic(true),
		answer:   r.NewStyle().Foreground(colorText),
		err:      r.NewStyle().Foreground(colorRed).Bold(true),
		vision:   r.NewStyle().Foreground(colorYellow),
		prompt:   r.NewStyle().Foreground(colorGreen).Bold(true),
	}
}
