package output

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Vue green accent on a neutral palette.
var (
	ColorGreen  = lipgloss.Color("#42b883") // primary
	ColorNavy   = lipgloss.Color("#35495e") // secondary
	ColorWhite  = lipgloss.Color("#fafaf9")
	ColorMuted  = lipgloss.Color("#78716c")
	ColorYellow = lipgloss.Color("#eab308")
	ColorRed    = lipgloss.Color("#f43f5e")
	ColorGray   = lipgloss.Color("#a8a29e")
)

func printerStyles() *log.Styles {
	styles := log.DefaultStyles()

	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Foreground(ColorGreen).
		Bold(true)

	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Foreground(ColorYellow).
		Bold(true)

	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Foreground(ColorRed).
		Bold(true)

	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Foreground(ColorMuted)

	styles.Timestamp = lipgloss.NewStyle().Foreground(ColorMuted)
	styles.Key = lipgloss.NewStyle().Foreground(ColorGreen)
	styles.Value = lipgloss.NewStyle().Foreground(ColorGray)

	return styles
}
