package output

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sdpower/copilot-usage/internal/types"
)

const barWidth = 20

var (
	lowColor, _  = colorful.Hex("#50fa7b")
	highColor, _ = colorful.Hex(ErrorColor)
)

type Formatter struct {
	options FormatterOptions
	text    *Template
	tooltip *Template
}

type FormatterOptions struct {
	NoColor       bool
	Format        string // Waybar text template, empty for the default
	TooltipFormat string // Waybar tooltip template, empty for the default
}

// NewFormatter parses the templates up front so a bad format string is
// reported before any request is made.
func NewFormatter(opts FormatterOptions) (*Formatter, error) {
	f := &Formatter{options: opts}
	if opts.Format != "" {
		t, err := ParseTemplate(opts.Format)
		if err != nil {
			return nil, err
		}
		f.text = t
	}
	if opts.TooltipFormat != "" {
		t, err := ParseTemplate(opts.TooltipFormat)
		if err != nil {
			return nil, err
		}
		f.tooltip = t
	}
	return f, nil
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Report renders the plaintext report. It shows the raw percentage,
// so going over quota reads as e.g. 133%.
func (f *Formatter) Report(view types.StatusView) string {
	var output strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(CopilotColor))
	if f.options.NoColor {
		titleStyle = lipgloss.NewStyle()
	}
	output.WriteString(titleStyle.Render("GitHub Copilot Premium Requests"))
	output.WriteString("\n")

	var buf bytes.Buffer
	table := tablewriter.NewTable(&buf,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})),
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Alignment: tw.CellAlignment{Global: tw.AlignRight},
			},
		}),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"Used", "Quota", "Usage", "Reset"})
	table.Append([]string{
		view.UsedLabel,
		strconv.Itoa(view.Quota),
		fmt.Sprintf("%d%%", view.Percentage),
		view.ResetLabel,
	})
	table.Render()
	output.WriteString(buf.String())

	output.WriteString(f.bar(view.DisplayPercentage))
	output.WriteString(fmt.Sprintf(" %d%%\n", view.Percentage))
	output.WriteString(fmt.Sprintf("Resets %s (next month, 1st at 00:00 UTC)\n",
		view.ResetAt.Format("2006-01-02 15:04 MST")))

	return output.String()
}

func (f *Formatter) bar(pct int) string {
	filled := pct * barWidth / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	if f.options.NoColor {
		return bar
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(barColor(pct))).Render(bar)
}

// barColor blends from green at 0% to red at 100%.
func barColor(pct int) string {
	return lowColor.BlendLab(highColor, float64(pct)/100).Clamped().Hex()
}
