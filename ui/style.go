package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Colours used for the log levels of an update run.
const (
	ColorInfo    = 0xd0d0d0
	ColorSuccess = 0x5fd75f
	ColorError   = 0xff5f5f
	ColorTitle   = 0x5f87ff
	ColorMuted   = 0x808080
)

// Colorize applies the given color to the text using lipgloss.
// color is a 0xRRGGBB integer.
func Colorize(text string, color int) string {
	hexColor := fmt.Sprintf("#%06x", color)
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor))
	return style.Render(text)
}

// LevelColor maps a log level name (info, success, error, title) to its
// colour.
func LevelColor(level string) int {
	switch level {
	case "success":
		return ColorSuccess
	case "error":
		return ColorError
	case "title":
		return ColorTitle
	default:
		return ColorInfo
	}
}
