// Package progress shows the running pipeline stage while work is in flight.
package progress

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/components"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

// StageMsg switches the displayed stage.
type StageMsg string

// doneMsg is sent once the work has returned.
type doneMsg struct {
	err error
}

// Model is the bubbletea model of the progress view.
type Model struct {
	spinner components.StageSpinner
	done    bool
	err     error
}

// New creates a progress view starting at stage.
func New(stage string) Model {
	return Model{spinner: components.NewSpinner(stage)}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StageMsg:
		m.spinner.SetStage(string(msg))
		return m, nil
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	if m.done {
		if m.err != nil {
			return styles.ErrorTextStyle.Render(fmt.Sprintf("✗ %s failed", m.spinner.Stage())) + "\n"
		}
		return ""
	}
	return m.spinner.View() + "\n"
}

// Run executes work while drawing a spinner on out. work reports stage
// changes through the callback it is given. Interrupting the view does not
// cancel work; cancel its context instead.
func Run(out io.Writer, first string, work func(stage func(string)) error) error {
	p := tea.NewProgram(New(first), tea.WithOutput(out), tea.WithInput(nil))

	result := make(chan error, 1)
	go func() {
		err := work(func(stage string) { p.Send(StageMsg(stage)) })
		result <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run progress view: %w", err)
	}
	return <-result
}
