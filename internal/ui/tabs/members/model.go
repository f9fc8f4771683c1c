// Package members provides a sortable per-user table for the interactive viewer.
package members

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/j-veylop/cursor-usage-dashboard/internal/app"
	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/console"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

// SortField is a column the table can be ordered by.
type SortField int

// Sort fields, in the order the sort key cycles through them.
const (
	SortLines SortField = iota
	SortChats
	SortCompletions
	SortGrowth
	SortName
)

var sortNames = []string{"lines", "chats", "tabs", "growth", "name"}

func (f SortField) String() string {
	return sortNames[f]
}

// next cycles to the following sort field.
func (f SortField) next() SortField {
	return SortField((int(f) + 1) % len(sortNames))
}

// keyMap defines the key bindings specific to the members tab.
type keyMap struct {
	Sort key.Binding
	Up   key.Binding
	Down key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "cycle sort"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "previous user"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "next user"),
		),
	}
}

// Model represents the members tab state.
type Model struct {
	state  *app.State
	keys   keyMap
	table  table.Model
	sortBy SortField
	rows   []models.UserSummary
	width  int
	height int
}

// New creates a new members model.
func New(state *app.State) *Model {
	t := table.New(
		table.WithColumns(columns(0)),
		table.WithFocused(true),
	)
	s := table.DefaultStyles()
	s.Header = styles.TableHeaderStyle
	s.Selected = styles.SelectedListItemStyle
	t.SetStyles(s)

	m := &Model{state: state, keys: defaultKeyMap(), table: t}
	m.reload()
	return m
}

// columns sizes the table to width, giving the name column what is left.
func columns(width int) []table.Column {
	const numeric = 5*9 + 8
	nameWidth := max(width-numeric-24, 16)
	return []table.Column{
		{Title: "User", Width: nameWidth},
		{Title: "Lines", Width: 9},
		{Title: "Chats", Width: 9},
		{Title: "Tabs", Width: 9},
		{Title: "Days", Width: 6},
		{Title: "Growth", Width: 9},
	}
}

// Init initializes the members tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the members tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.ReportLoadedMsg:
		if msg.Result != nil {
			m.reload()
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Sort) {
			m.sortBy = m.sortBy.next()
			m.reload()
			return m, nil
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	return m, nil
}

// reload rebuilds the rows from the current report.
func (m *Model) reload() {
	m.rows = nil
	if r := m.state.Report(); r != nil {
		m.rows = Sorted(r.Summaries, m.sortBy)
	}

	rows := make([]table.Row, 0, len(m.rows))
	for _, s := range m.rows {
		rows = append(rows, table.Row{
			s.Name,
			humanize.Comma(s.TotalLines),
			humanize.Comma(s.TotalChats),
			humanize.Comma(s.TotalCompletions),
			fmt.Sprintf("%d", s.ActiveDays),
			console.FormatGrowth(s.GrowthPct),
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

// Selected returns the highlighted user.
func (m *Model) Selected() (models.UserSummary, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.rows) {
		return models.UserSummary{}, false
	}
	return m.rows[i], true
}

// SetSize sets the available size for the members tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetColumns(columns(width))
	m.table.SetWidth(max(width-4, 0))
	m.table.SetHeight(max(height-detailHeight, 3))
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Sort, m.keys.Up, m.keys.Down}
}

// Sorted returns a copy of summaries ordered by field, largest first. Ties
// and the name order fall back to email.
func Sorted(summaries []models.UserSummary, field SortField) []models.UserSummary {
	out := slices.Clone(summaries)
	slices.SortStableFunc(out, func(a, b models.UserSummary) int {
		var c int
		switch field {
		case SortLines:
			c = cmp.Compare(b.TotalLines, a.TotalLines)
		case SortChats:
			c = cmp.Compare(b.TotalChats, a.TotalChats)
		case SortCompletions:
			c = cmp.Compare(b.TotalCompletions, a.TotalCompletions)
		case SortGrowth:
			c = compareGrowth(a.GrowthPct, b.GrowthPct)
		case SortName:
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.Email, b.Email)
	})
	return out
}

// compareGrowth orders higher growth first and undefined growth last.
func compareGrowth(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return cmp.Compare(*b, *a)
}
