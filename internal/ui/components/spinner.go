package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/styles"
)

// StageSpinner shows a spinner next to the name of the running stage and the
// time spent in it.
type StageSpinner struct {
	spinner spinner.Model
	stage   string
	started time.Time
	style   lipgloss.Style
}

// NewSpinner creates a spinner for the given stage.
func NewSpinner(stage string) StageSpinner {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return StageSpinner{
		spinner: s,
		stage:   stage,
		started: time.Now(),
		style:   lipgloss.NewStyle().Foreground(styles.TextSecondary),
	}
}

// Init starts the spinner.
func (l StageSpinner) Init() tea.Cmd {
	return l.spinner.Tick
}

// Update handles spinner tick messages.
func (l StageSpinner) Update(msg tea.Msg) (StageSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// View renders the spinner and the current stage.
func (l StageSpinner) View() string {
	elapsed := time.Since(l.started).Round(time.Second)
	return l.spinner.View() + " " + l.style.Render(l.stage) + " " + styles.HelpStyle.Render(elapsed.String())
}

// SetStage switches to a new stage and restarts the timer.
func (l *StageSpinner) SetStage(stage string) {
	l.stage = stage
	l.started = time.Now()
}

// Stage returns the current stage.
func (l StageSpinner) Stage() string {
	return l.stage
}
