package output

import (
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Property is one row of a key/value table.
type Property struct {
	Key   string
	Value string
}

// OutputSummary contains data for one file written by a build.
type OutputSummary struct {
	Path   string
	Bytes  int
	Digest string
}

// TargetSummary contains data for the last build of a target.
type TargetSummary struct {
	Name    string
	Mode    string // development, production
	BuildID string
	BuiltAt time.Time // zero if never built
	State   string    // built, stale, missing
}

// ServerSummary contains data for a running dev server.
type ServerSummary struct {
	Target    string
	URL       string
	PID       int
	Status    string // running, stopped
	StartedAt time.Time
}

// Properties prints a titled key/value table.
func (p *Printer) Properties(title string, props []Property) {
	if len(props) == 0 {
		return
	}

	p.Section(title)

	t := p.newTable()
	for _, prop := range props {
		t.AppendRow(table.Row{prop.Key, prop.Value})
	}
	t.Render()
	p.Println()
}

// Outputs prints the files written by a build with their sizes and digests.
func (p *Printer) Outputs(outputs []OutputSummary) {
	if len(outputs) == 0 {
		return
	}

	p.Section("OUTPUTS")

	t := p.newTable()
	t.AppendHeader(table.Row{"Path", "Size", "Digest"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	var total int
	for _, o := range outputs {
		t.AppendRow(table.Row{o.Path, humanize.Bytes(uint64(o.Bytes)), shortDigest(o.Digest)})
		total += o.Bytes
	}
	if len(outputs) > 1 {
		t.AppendFooter(table.Row{"", humanize.Bytes(uint64(total)), ""})
	}

	t.Render()
	p.Println()
}

// Targets prints the build state of each target.
func (p *Printer) Targets(targets []TargetSummary) {
	if len(targets) == 0 {
		return
	}

	p.Section("TARGETS")

	t := p.newTable()
	t.AppendHeader(table.Row{"Name", "Mode", "Build", "Built", "State"})

	for _, tg := range targets {
		built := "-"
		if !tg.BuiltAt.IsZero() {
			built = humanize.Time(tg.BuiltAt)
		}
		build := tg.BuildID
		if len(build) > 8 {
			build = build[:8]
		}
		if build == "" {
			build = "-"
		}
		state := tg.State
		if p.isTTY {
			state = colorState(tg.State)
		}
		t.AppendRow(table.Row{tg.Name, tg.Mode, build, built, state})
	}

	t.Render()
	p.Println()
}

// Servers prints the dev server status table.
func (p *Printer) Servers(servers []ServerSummary) {
	if len(servers) == 0 {
		return
	}

	p.Section("DEV SERVERS")

	t := p.newTable()
	t.AppendHeader(table.Row{"Target", "URL", "PID", "Status", "Started"})

	for _, s := range servers {
		status := s.Status
		if p.isTTY {
			status = colorState(s.Status)
		}
		t.AppendRow(table.Row{s.Target, s.URL, s.PID, status, humanize.Time(s.StartedAt)})
	}

	t.Render()
	p.Println()
}

// shortDigest trims a hex digest for display.
func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// colorState applies color to state based on status.
func colorState(state string) string {
	var style lipgloss.Style
	switch state {
	case "running", "built":
		style = lipgloss.NewStyle().Foreground(ColorGreen)
	case "failed", "missing":
		style = lipgloss.NewStyle().Foreground(ColorRed)
	case "stale", "rebuilding":
		style = lipgloss.NewStyle().Foreground(ColorYellow)
	case "stopped":
		style = lipgloss.NewStyle().Foreground(ColorMuted)
	default:
		style = lipgloss.NewStyle().Foreground(ColorGray)
	}
	return style.Render(state)
}

func (p *Printer) newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(p.out)
	t.SetStyle(p.tableStyle())
	return t
}

// tableStyle returns the standard table style.
func (p *Printer) tableStyle() table.Style {
	style := table.StyleRounded
	if p.isTTY {
		style.Color.Header = text.Colors{text.FgHiGreen, text.Bold}
		style.Color.Border = text.Colors{text.FgHiBlack}
	}
	style.Options.SeparateRows = false
	return style
}

// Section prints a section header.
func (p *Printer) Section(title string) {
	if p.isTTY {
		style := lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
		p.Println(style.Render(title))
	} else {
		p.Println(title)
	}
}
