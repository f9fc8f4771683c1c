// Package console renders a run summary for the terminal.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/components"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

const (
	minWidth   = 60
	nameWidth  = 22
	topLeaders = 5
)

// Summary is what a finished run reports to the terminal.
type Summary struct {
	Report     *models.Report
	OutputPath string
	// PublishedURI is set when the dashboard was uploaded.
	PublishedURI string
	// Trend holds earlier runs of the same group, when history is enabled.
	Trend *models.HistoryTrend
}

// Render draws the summary at the given terminal width.
func Render(s Summary, width int) string {
	width = max(width, minWidth)
	r := s.Report

	var sections []string
	sections = append(sections, styles.TitleStyle.Render(fmt.Sprintf("Cursor usage: %s", r.Group))+"\n"+
		styles.HelpStyle.Render(fmt.Sprintf("%s · %d members · %d active", r.Range, r.Totals.Members, r.Totals.ActiveUsers)))

	if r.Empty {
		sections = append(sections, styles.WarningTextStyle.Render("No usage was recorded for this group in the selected period."))
	}

	sections = append(sections, RenderCards(r.Totals))
	sections = append(sections, components.RenderMixBar(r.Mix, width-4)+"\n"+components.RenderLegend([]components.LegendItem{
		{Label: fmt.Sprintf("Lines %.1f%%", r.Mix.LinesPct), Color: styles.Lines},
		{Label: fmt.Sprintf("Chats %.1f%%", r.Mix.ChatsPct), Color: styles.Chats},
		{Label: fmt.Sprintf("Tabs %.1f%%", r.Mix.CompletionsPct), Color: styles.Completions},
	}))

	if !r.Empty {
		sections = append(sections,
			styles.SubTitleStyle.Render("Daily activity")+"\n"+
				components.RenderActivityChart(r.Daily, width-12, 8, "lines (green), chats + tabs scaled (cyan)"))
		sections = append(sections, styles.SubTitleStyle.Render("Top lines of agent code")+"\n"+RenderLeaders(r, width))
		sections = append(sections, styles.SubTitleStyle.Render("Members")+"\n"+RenderMembers(r))
	}

	if s.Trend != nil && len(s.Trend.Runs) > 1 {
		sections = append(sections, styles.SubTitleStyle.Render("Lines per run")+"\n"+
			components.RenderSparkline(s.Trend.Lines(), min(width-4, 60))+" "+
			styles.HelpStyle.Render(fmt.Sprintf("%d runs", len(s.Trend.Runs))))
	}

	if s.OutputPath != "" {
		footer := styles.SuccessTextStyle.Render("Dashboard written to ") + s.OutputPath
		if s.PublishedURI != "" {
			footer += "\n" + styles.SuccessTextStyle.Render("Published to ") + s.PublishedURI
		}
		sections = append(sections, footer)
	}
	return strings.Join(sections, "\n\n") + "\n"
}

// RenderCards draws the three headline totals with their growth.
func RenderCards(t models.Totals) string {
	card := func(label string, value int64, growth *float64) string {
		body := styles.CardLabelStyle.Render(label) + "\n" +
			styles.CardValueStyle.Render(humanize.Comma(value)) + "\n" +
			styles.GetGrowthStyle(growth).Render(FormatGrowth(growth))
		return styles.CardStyle.Render(body)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Lines", t.Lines, t.LinesGrowthPct),
		card("Chats", t.Chats, t.ChatsGrowthPct),
		card("Tabs", t.Completions, t.CompletionsGrowthPct),
	)
}

// RenderLeaders draws the top users by lines as a bar chart.
func RenderLeaders(r *models.Report, width int) string {
	var bars []components.Bar
	for _, email := range r.Rankings.ByLines {
		s, ok := r.Summary(email)
		if !ok || s.TotalLines == 0 {
			continue
		}
		bars = append(bars, components.Bar{Label: s.Name, Value: s.TotalLines, Note: FormatGrowth(s.GrowthPct)})
		if len(bars) == topLeaders {
			break
		}
	}
	if len(bars) == 0 {
		return styles.HelpStyle.Render("No lines recorded.")
	}
	return components.RenderBarChart(bars, nameWidth, width, styles.Lines)
}

// RenderMembers draws every summary as a table.
func RenderMembers(r *models.Report) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Subtle)).
		Headers("User", "Lines", "Chats", "Tabs", "Days", "Growth").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.TableHeaderStyle
			case col == 0:
				return styles.TableCellStyle
			default:
				return styles.TableNumberStyle
			}
		})

	for _, s := range r.Summaries {
		t.Row(
			ansi.Truncate(s.Name, nameWidth, "…"),
			humanize.Comma(s.TotalLines),
			humanize.Comma(s.TotalChats),
			humanize.Comma(s.TotalCompletions),
			fmt.Sprintf("%d", s.ActiveDays),
			FormatGrowth(s.GrowthPct),
		)
	}
	return t.Render()
}

// FormatGrowth formats a growth percentage, or n/a when undefined.
func FormatGrowth(g *float64) string {
	if g == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *g)
}

// RenderGroups lists the configured groups with their member counts, followed
// by the emails left out of every report.
func RenderGroups(groups []models.Group, source string, excluded []string) string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("Groups"))
	b.WriteString("\n")
	b.WriteString(styles.HelpStyle.Render("from " + source))
	b.WriteString("\n\n")

	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers("Name", "Members", "Description").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.TableHeaderStyle
			}
			if col == 1 {
				return styles.TableNumberStyle
			}
			return styles.TableCellStyle
		})
	t.Row(models.AllGroup, "team", "Every team member")
	for _, g := range groups {
		t.Row(g.Name, fmt.Sprintf("%d", len(g.Members)), g.Description)
	}
	b.WriteString(t.Render())
	b.WriteString("\n")

	if len(excluded) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.SubTitleStyle.Render(fmt.Sprintf("Excluded (%d)", len(excluded))))
		b.WriteString("\n")
		for _, e := range excluded {
			b.WriteString("  " + styles.HelpStyle.Render(e) + "\n")
		}
	}
	return b.String()
}
