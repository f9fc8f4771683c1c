// Package picker provides an interactive group chooser.
package picker

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

// ErrCanceled is returned when the user quits without choosing.
var ErrCanceled = errors.New("group selection canceled")

type item struct {
	name        string
	description string
	members     int
}

func (i item) Title() string { return i.name }

func (i item) Description() string {
	if i.members < 0 {
		return i.description
	}
	desc := fmt.Sprintf("%d members", i.members)
	if i.description != "" {
		desc += " · " + i.description
	}
	return desc
}

func (i item) FilterValue() string { return i.name }

type keyMap struct {
	Choose key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Choose: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "choose"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// Model is the bubbletea model of the picker.
type Model struct {
	list     list.Model
	keys     keyMap
	choice   string
	canceled bool
}

// New creates a picker listing "all" followed by groups.
func New(groups []models.Group) Model {
	items := []list.Item{item{name: models.AllGroup, description: "Every team member", members: -1}}
	for _, g := range groups {
		items = append(items, item{name: g.Name, description: g.Description, members: len(g.Members)})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(styles.Primary).BorderForeground(styles.Primary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(styles.TextSecondary).BorderForeground(styles.Primary)

	keys := defaultKeyMap()
	l := list.New(items, delegate, 0, 0)
	l.Title = "Choose a group"
	l.Styles.Title = styles.TitleStyle
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{keys.Choose} }

	return Model{list: l, keys: keys}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		// Let the filter input consume keys while it is active.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.canceled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Choose):
			if it, ok := m.list.SelectedItem().(item); ok {
				m.choice = it.name
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	return m.list.View()
}

// Choice returns the chosen group, if any.
func (m Model) Choice() (string, bool) {
	return m.choice, m.choice != "" && !m.canceled
}

// Run shows the picker on the terminal and returns the chosen group.
func Run(groups []models.Group, in io.Reader, out io.Writer) (string, error) {
	p := tea.NewProgram(New(groups), tea.WithInput(in), tea.WithOutput(out), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("run group picker: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return "", ErrCanceled
	}
	choice, ok := m.Choice()
	if !ok {
		return "", ErrCanceled
	}
	return choice, nil
}
