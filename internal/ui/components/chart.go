// Package components provides reusable terminal rendering components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	// Ensure minimum dimensions
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// RenderActivityChart plots daily lines alongside daily chats and tab
// completions scaled to the same height.
func RenderActivityChart(daily []models.DailyPoint, width, height int, caption string) string {
	if len(daily) == 0 {
		return styles.HelpStyle.Render("No data available")
	}
	if width < 20 {
		width = 20
	}
	if height < 3 {
		height = 3
	}

	lines := make([]float64, len(daily))
	events := make([]float64, len(daily))
	for i, p := range daily {
		lines[i] = float64(p.Lines)
		events[i] = float64(p.Chats + p.Completions)
	}
	if len(daily) == 1 {
		// asciigraph needs two points to draw a line.
		lines = append(lines, lines[0])
		events = append(events, events[0])
	}

	return asciigraph.PlotMany([][]float64{lines, scaleTo(events, maxOf(lines))},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Cyan),
	)
}

// Bar is one row of a horizontal bar chart.
type Bar struct {
	Label string
	Value int64
	Note  string
}

// RenderBarChart creates a horizontal bar chart. Labels wider than
// labelWidth are truncated.
func RenderBarChart(bars []Bar, labelWidth, width int, color lipgloss.Color) string {
	if len(bars) == 0 {
		return ""
	}

	var maxVal int64
	for _, b := range bars {
		maxVal = max(maxVal, b.Value)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	barWidth := width - labelWidth - 12 // Leave room for label and value
	if barWidth < 10 {
		barWidth = 10
	}
	barStyle := lipgloss.NewStyle().Foreground(color)

	lines := make([]string, 0, len(bars))
	for _, b := range bars {
		label := ansi.Truncate(b.Label, labelWidth, "…")
		label += strings.Repeat(" ", max(0, labelWidth-ansi.StringWidth(label)))

		barLen := int(float64(b.Value) / float64(maxVal) * float64(barWidth))
		line := label + " │" + barStyle.Render(strings.Repeat("█", max(0, barLen))) + " " + humanize.Comma(b.Value)
		if b.Note != "" {
			line += " " + styles.HelpStyle.Render(b.Note)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// RenderSparkline creates a compact inline sparkline chart.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	maxVal := maxOf(values)
	if maxVal == 0 {
		maxVal = 1
	}

	// Sample values to fit width
	var result strings.Builder
	step := float64(len(values)) / float64(width)
	if step < 1 {
		step = 1
	}

	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		val := values[int(float64(i)*step)]
		normalized := int((val / maxVal) * float64(len(sparkChars)-1))
		normalized = min(max(normalized, 0), len(sparkChars)-1)
		result.WriteRune(sparkChars[normalized])
	}
	return result.String()
}

// RenderMixBar draws the usage mix as one stacked bar of the given width.
func RenderMixBar(mix models.UsageMix, width int) string {
	total := mix.LinesPct + mix.ChatsPct + mix.CompletionsPct
	if total == 0 || width <= 0 {
		return styles.HelpStyle.Render(strings.Repeat("░", max(width, 0)))
	}

	segments := []struct {
		pct   float64
		color lipgloss.Color
	}{
		{mix.LinesPct, styles.Lines},
		{mix.ChatsPct, styles.Chats},
		{mix.CompletionsPct, styles.Completions},
	}

	var b strings.Builder
	used := 0
	for i, s := range segments {
		n := int(s.pct / total * float64(width))
		if i == len(segments)-1 {
			n = width - used
		}
		used += n
		b.WriteString(lipgloss.NewStyle().Foreground(s.color).Render(strings.Repeat("█", max(n, 0))))
	}
	return b.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	var parts []string
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

func maxOf(values []float64) float64 {
	var m float64
	for _, v := range values {
		m = max(m, v)
	}
	return m
}

func scaleTo(values []float64, top float64) []float64 {
	peak := maxOf(values)
	out := make([]float64, len(values))
	if peak == 0 || top == 0 {
		copy(out, values)
		return out
	}
	for i, v := range values {
		out[i] = v / peak * top
	}
	return out
}
