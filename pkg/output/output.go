// Package output renders ccbuild's terminal output.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Printer writes styled logs and tables. Styling is only applied on a TTY.
type Printer struct {
	out    io.Writer
	logger *log.Logger
	isTTY  bool
}

// New creates a Printer writing to stdout.
func New() *Printer {
	return NewWithWriter(os.Stdout)
}

// NewWithWriter creates a Printer with a custom writer.
func NewWithWriter(w io.Writer) *Printer {
	isTTY := isTerminal(w)

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly, // HH:MM:SS
	})

	if isTTY {
		logger.SetStyles(printerStyles())
	}

	return &Printer{
		out:    w,
		logger: logger,
		isTTY:  isTTY,
	}
}

// isTerminal checks if the writer is a TTY (for color support).
func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Info logs an info message with optional key-value pairs.
func (p *Printer) Info(msg string, keyvals ...any) {
	p.logger.Info(msg, keyvals...)
}

// Warn logs a warning message with optional key-value pairs.
func (p *Printer) Warn(msg string, keyvals ...any) {
	p.logger.Warn(msg, keyvals...)
}

// Error logs an error message with optional key-value pairs.
func (p *Printer) Error(msg string, keyvals ...any) {
	p.logger.Error(msg, keyvals...)
}

// Debug logs a debug message with optional key-value pairs.
func (p *Printer) Debug(msg string, keyvals ...any) {
	p.logger.Debug(msg, keyvals...)
}

// SetDebug enables debug-level logging.
func (p *Printer) SetDebug(enabled bool) {
	if enabled {
		p.logger.SetLevel(log.DebugLevel)
	} else {
		p.logger.SetLevel(log.InfoLevel)
	}
}

// Banner prints the ccbuild logo with version information.
func (p *Printer) Banner(ver string) {
	if !p.isTTY {
		fmt.Fprintf(p.out, "ccbuild %s\n\n", ver)
		return
	}

	green := lipgloss.NewStyle().Foreground(ColorGreen)
	white := lipgloss.NewStyle().Foreground(ColorWhite)
	muted := lipgloss.NewStyle().Foreground(ColorMuted)

	ccPart := []string{
		``,
		``,
		`  ___ ___`,
		` / __/ __|`,
		`| (_| (__`,
		` \___\___|`,
	}
	buildPart := []string{
		` _           _ _     _`,
		`| |__  _   _(_) | __| |`,
		`| '_ \| | | | | |/ _` + "`" + ` |`,
		`| |_) | |_| | | | (_| |`,
		`|_.__/ \__,_|_|_|\__,_|`,
		``,
	}

	width := 0
	for _, line := range ccPart {
		width = max(width, len(line))
	}
	for i := range buildPart {
		fmt.Fprint(p.out, green.Render(fmt.Sprintf("%-*s", width, ccPart[i])))
		fmt.Fprint(p.out, white.Render(buildPart[i]))
		fmt.Fprintln(p.out)
	}

	fmt.Fprintf(p.out, "\n  %s %s\n\n", muted.Render("version"), green.Render(ver))
}

// Println writes a message with newline directly to output.
func (p *Printer) Println(args ...any) {
	fmt.Fprintln(p.out, args...)
}
