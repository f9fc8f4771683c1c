package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/components"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/console"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

const minChartWidth = 40

// View renders the dashboard tab.
func (m *Model) View() string {
	res := m.state.Result()
	if res == nil {
		return m.renderPending()
	}

	m.viewport.SetContent(m.renderReport(res))
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderPending() string {
	var content string
	if err := m.state.Err(); err != nil {
		content = fmt.Sprintf("%s %v", styles.ErrorTextStyle.Render("Error:"), err)
	} else {
		content = styles.HelpStyle.Render("Generating dashboard...")
	}
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderReport(res *services.Result) string {
	r := res.Report
	width := max(m.width-6, minChartWidth)

	var sections []string
	sections = append(sections,
		styles.TitleStyle.Render("Cursor usage: "+r.Group),
		styles.HelpStyle.Render(fmt.Sprintf("%s · %d members · %d active · generated %s",
			r.Range, r.Totals.Members, r.Totals.ActiveUsers, r.GeneratedAt.Format("2006-01-02 15:04"))),
	)

	if len(res.Missing) > 0 {
		sections = append(sections, styles.WarningTextStyle.Render(
			"Not in team: "+strings.Join(res.Missing, ", ")))
	}
	if r.Empty {
		sections = append(sections, styles.WarningTextStyle.Render(
			"No usage was recorded for this group in the selected period."))
	}

	sections = append(sections, "", console.RenderCards(r.Totals), "",
		components.RenderMixBar(r.Mix, width),
		components.RenderLegend([]components.LegendItem{
			{Label: fmt.Sprintf("Lines %.1f%%", r.Mix.LinesPct), Color: styles.Lines},
			{Label: fmt.Sprintf("Chats %.1f%%", r.Mix.ChatsPct), Color: styles.Chats},
			{Label: fmt.Sprintf("Tabs %.1f%%", r.Mix.CompletionsPct), Color: styles.Completions},
		}),
	)

	if !r.Empty {
		sections = append(sections, "",
			styles.SubTitleStyle.Render("Daily activity"),
			components.RenderActivityChart(r.Daily, width-8, 8, "lines (green), chats + tabs scaled (cyan)"),
			"",
			styles.SubTitleStyle.Render("Top lines of agent code"),
			console.RenderLeaders(r, width),
			"",
			styles.SubTitleStyle.Render("Most persistent"),
			renderPersistence(r.Persistence),
		)
	}

	sections = append(sections, "", styles.SuccessTextStyle.Render("Dashboard: ")+res.OutputPath)
	if res.PublishedURI != "" {
		sections = append(sections, styles.SuccessTextStyle.Render("Published: ")+res.PublishedURI)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderPersistence(entries []models.PersistenceEntry) string {
	if len(entries) == 0 {
		return styles.HelpStyle.Render("No active users.")
	}
	lines := make([]string, 0, len(entries))
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("%d. %-22s %s  %s",
			i+1, e.Name,
			styles.CardValueStyle.Render(fmt.Sprintf("%5.1f", e.Score)),
			styles.HelpStyle.Render(fmt.Sprintf("%d/%d days, %.0f lines/day", e.ActiveDays, e.TotalDays, e.AvgDaily))))
	}
	return strings.Join(lines, "\n")
}
