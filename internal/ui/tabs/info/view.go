package info

import (
	"fmt"
	"runtime"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
	"github.com/j-veylop/cursor-usage-dashboard/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		m.renderTitle(),
		m.renderConfigCard(),
		m.renderAboutCard(),
	)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and application information")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 80)
}

func (m *Model) renderConfigCard() string {
	rows := []string{styles.CardTitleStyle.Render("Configuration"), ""}

	if c := m.config; c != nil {
		rows = append(rows,
			renderRow("Team", fmt.Sprintf("%d", c.TeamID)),
			renderRow("Group", m.group),
			renderRow("Days", fmt.Sprintf("%d", c.DefaultDays)),
			renderRow("Usage source", c.UsageSource),
			renderRow("API", c.APIBaseURL),
			renderRow("Reports", c.ReportsDir),
			renderRow("Groups file", orDefault(c.GroupsFile, "built-in")),
			renderRow("Email cache", c.EmailMappingPath),
			renderRow("History", orDefault(c.HistoryDBPath, "disabled")),
			renderRow("Log level", c.LogLevel),
		)
		if c.ObjectStore.Enabled() {
			rows = append(rows, renderRow("Publish to", fmt.Sprintf("%s/%s/%s",
				c.ObjectStore.Endpoint, c.ObjectStore.Bucket, c.ObjectStore.Prefix)))
		} else {
			rows = append(rows, renderRow("Publish to", "disabled"))
		}
	} else {
		rows = append(rows, styles.HelpStyle.Render("Configuration not loaded"))
	}

	if res := m.state.Result(); res != nil {
		rows = append(rows, "", renderRow("Last dashboard", res.OutputPath))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderAboutCard() string {
	rows := []string{
		styles.CardTitleStyle.Render("About cursor-usage-dashboard"),
		"",
		renderRow("Version", version.GetVersion()),
		renderRow("Build Date", version.GetDate()),
		renderRow("Git Commit", version.GetCommit()),
		renderRow("Go Version", runtime.Version()),
		renderRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
	}
	return styles.CardStyle.Width(m.cardWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(16).
		Foreground(styles.TextMuted)
	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)
	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
