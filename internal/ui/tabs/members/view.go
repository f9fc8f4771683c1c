package members

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/components"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/console"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

// detailHeight is the space kept below the table for the selected user.
const detailHeight = 9

// View renders the members tab.
func (m *Model) View() string {
	if m.state.Report() == nil {
		return styles.DocStyle.
			Width(m.width).
			Height(m.height).
			Render(styles.HelpStyle.Render("Waiting for the first report..."))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.TitleStyle.Render("Members"),
		"  ",
		styles.HelpStyle.Render(fmt.Sprintf("%d users · sorted by %s", len(m.rows), m.sortBy)),
	)

	sections := []string{header, m.table.View()}
	if s, ok := m.Selected(); ok {
		sections = append(sections, "", m.renderDetail(s))
	}

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderDetail(s models.UserSummary) string {
	daily := make([]float64, len(s.Daily))
	for i, d := range s.Daily {
		daily[i] = float64(d.Lines)
	}

	rows := []string{
		styles.CardTitleStyle.Render(s.Name) + "  " + styles.HelpStyle.Render(s.Email),
		"",
		fmt.Sprintf("Lines per day  %s", components.RenderSparkline(daily, min(max(m.width-30, 10), 60))),
		fmt.Sprintf("This week      %s", humanize.Comma(s.CurrentWeekLines)),
		fmt.Sprintf("Previous week  %s", humanize.Comma(s.PreviousWeekLines)),
		"Growth         " + styles.GetGrowthStyle(s.GrowthPct).Render(console.FormatGrowth(s.GrowthPct)),
	}
	return styles.CardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
