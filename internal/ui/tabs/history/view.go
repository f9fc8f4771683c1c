package history

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/components"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

// View renders the history tab.
func (m *Model) View() string {
	res := m.state.Result()
	switch {
	case res == nil:
		return m.renderMessage(styles.HelpStyle.Render("Waiting for the first report..."))
	case res.Trend == nil:
		return m.renderMessage(lipgloss.JoinVertical(lipgloss.Left,
			styles.TitleStyle.Render("History"),
			styles.HelpStyle.Render("Run history is disabled."),
			styles.HelpStyle.Render("Set HISTORY_DB_PATH or pass --history to record runs."),
		))
	case !res.Trend.HasData():
		return m.renderMessage(lipgloss.JoinVertical(lipgloss.Left,
			styles.TitleStyle.Render("History"),
			styles.HelpStyle.Render("No runs recorded yet."),
		))
	}

	trend := res.Trend
	sections := []string{
		m.renderHeader(trend),
		m.renderChart(trend),
		"",
		styles.SubTitleStyle.Render("Runs"),
		renderRuns(trend.Runs, len(trend.Runs)-1-m.selected),
	}
	if m.load != nil {
		sections = append(sections, styles.HelpStyle.Render("n/p select a run, enter shows it by user"))
	}
	if m.detail != nil {
		sections = append(sections, "", renderDetail(m.detail))
	}
	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderMessage(content string) string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderHeader(trend *models.HistoryTrend) string {
	title := styles.TitleStyle.Render("History: " + trend.Group)

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)
	indicator := rangeStyle.Render(fmt.Sprintf("[t] %s", m.metric))

	first, last := trend.Runs[0], trend.Runs[len(trend.Runs)-1]
	subtitle := styles.HelpStyle.Render(fmt.Sprintf("%d runs from %s to %s",
		len(trend.Runs), first.GeneratedAt.Format("Jan 2, 2006"), last.GeneratedAt.Format("Jan 2, 2006")))

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", indicator),
		subtitle,
		"",
	)
}

func (m *Model) renderChart(trend *models.HistoryTrend) string {
	values := m.metric.Values(trend.Runs)
	if len(values) < 2 {
		return styles.HelpStyle.Render("The chart appears after the second run.")
	}
	width := max(m.width-16, 20)
	return components.RenderLineChart(values, width, 10, fmt.Sprintf("%s per run", m.metric))
}

// renderRuns lists runs newest first, marking runs[selected].
func renderRuns(runs []models.RunRecord, selected int) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Subtle)).
		Headers("", "Generated", "Range", "Active", "Lines", "Chats", "Tabs").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.TableHeaderStyle
			case col < 3:
				return styles.TableCellStyle
			default:
				return styles.TableNumberStyle
			}
		})

	for i, r := range slices.Backward(runs) {
		marker := ""
		if i == selected {
			marker = ">"
		}
		t.Row(
			marker,
			r.GeneratedAt.Format("2006-01-02 15:04"),
			fmt.Sprintf("%s to %s", r.RangeStart, r.RangeEnd),
			fmt.Sprintf("%d/%d", r.ActiveUsers, r.Members),
			humanize.Comma(r.Lines),
			humanize.Comma(r.Chats),
			humanize.Comma(r.Completions),
		)
	}
	return t.Render()
}

// renderDetail shows one run's usage per user, busiest first.
func renderDetail(d *runDetail) string {
	title := styles.SubTitleStyle.Render("Run of " + d.run.GeneratedAt.Format("2006-01-02 15:04"))
	switch {
	case d.err != nil:
		return lipgloss.JoinVertical(lipgloss.Left, title,
			lipgloss.NewStyle().Foreground(styles.Error).Render("Failed to load run: "+d.err.Error()))
	case !d.loaded:
		return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render("Loading..."))
	case len(d.summaries) == 0:
		return lipgloss.JoinVertical(lipgloss.Left, title, styles.HelpStyle.Render("No usage was recorded in this run."))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Subtle)).
		Headers("User", "Lines", "Chats", "Tabs", "Days").
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
	for _, s := range d.summaries {
		t.Row(
			s.Name,
			humanize.Comma(s.TotalLines),
			humanize.Comma(s.TotalChats),
			humanize.Comma(s.TotalCompletions),
			fmt.Sprintf("%d", s.ActiveDays),
		)
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, t.Render())
}
