// Package history provides the history tab for viewing earlier runs of a group.
package history

import (
	"context"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"

	"github.com/j-veylop/cursor-usage-dashboard/internal/app"
	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/aggregate"
)

// RunLoader returns the daily usage stored for a recorded run.
type RunLoader func(ctx context.Context, runID string) ([]models.UsageRecord, error)

// runUsageMsg carries the usage of one run, loaded for the breakdown.
type runUsageMsg struct {
	runID   string
	records []models.UsageRecord
	err     error
}

// runDetail is the per-user breakdown of the selected run.
type runDetail struct {
	run       models.RunRecord
	loaded    bool
	summaries []models.UserSummary
	err       error
}

// Metric selects which run total the chart plots.
type Metric int

// Chartable run totals.
const (
	MetricLines Metric = iota
	MetricChats
	MetricCompletions
	MetricActive
)

var metricNames = []string{"lines", "chats", "tabs", "active users"}

func (m Metric) String() string {
	return metricNames[m]
}

// Next returns the following metric, wrapping around.
func (m Metric) Next() Metric {
	return Metric((int(m) + 1) % len(metricNames))
}

// Values extracts the metric from every run, oldest first.
func (m Metric) Values(runs []models.RunRecord) []float64 {
	out := make([]float64, len(runs))
	for i, r := range runs {
		switch m {
		case MetricLines:
			out[i] = float64(r.Lines)
		case MetricChats:
			out[i] = float64(r.Chats)
		case MetricCompletions:
			out[i] = float64(r.Completions)
		case MetricActive:
			out[i] = float64(r.ActiveUsers)
		}
	}
	return out
}

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	ToggleMetric key.Binding
	NextRun      key.Binding
	PrevRun      key.Binding
	Inspect      key.Binding
	Up           key.Binding
	Down         key.Binding
}

// defaultKeyMap returns the default key bindings for the history tab.
func defaultKeyMap() keyMap {
	return keyMap{
		ToggleMetric: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle metric"),
		),
		NextRun: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "older run"),
		),
		PrevRun: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "newer run"),
		),
		Inspect: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "show run by user"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// Model represents the history tab state.
type Model struct {
	state    *app.State
	load     RunLoader
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model
	metric   Metric

	// selected indexes the runs newest first.
	selected int
	detail   *runDetail
}

// New creates a new history model. load may be nil, which disables the
// per-run breakdown.
func New(state *app.State, load RunLoader) *Model {
	return &Model{
		state:    state,
		load:     load,
		keys:     defaultKeyMap(),
		viewport: viewport.New(0, 0),
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	switch msg := msg.(type) {
	case app.ReportLoadedMsg:
		if msg.Result != nil {
			m.selected = 0
			m.detail = nil
		}
		return m, nil

	case runUsageMsg:
		m.applyRunUsage(msg)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.ToggleMetric):
			m.metric = m.metric.Next()
			return m, nil
		case key.Matches(msg, m.keys.NextRun):
			m.selected = min(m.selected+1, max(len(m.runs())-1, 0))
			return m, nil
		case key.Matches(msg, m.keys.PrevRun):
			m.selected = max(m.selected-1, 0)
			return m, nil
		case key.Matches(msg, m.keys.Inspect):
			return m, m.inspect()
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// runs returns the recorded runs of the current trend, newest first.
func (m *Model) runs() []models.RunRecord {
	res := m.state.Result()
	if res == nil || res.Trend == nil {
		return nil
	}
	runs := slices.Clone(res.Trend.Runs)
	slices.Reverse(runs)
	return runs
}

// Selected returns the highlighted run.
func (m *Model) Selected() (models.RunRecord, bool) {
	runs := m.runs()
	if m.selected < 0 || m.selected >= len(runs) {
		return models.RunRecord{}, false
	}
	return runs[m.selected], true
}

// inspect loads the per-user usage of the selected run.
func (m *Model) inspect() tea.Cmd {
	run, ok := m.Selected()
	if !ok || m.load == nil {
		return nil
	}
	m.detail = &runDetail{run: run}
	load := m.load
	return func() tea.Msg {
		records, err := load(context.Background(), run.ID)
		return runUsageMsg{runID: run.ID, records: records, err: err}
	}
}

func (m *Model) applyRunUsage(msg runUsageMsg) {
	if m.detail == nil || m.detail.run.ID != msg.runID {
		return
	}
	m.detail.loaded = true
	if msg.err != nil {
		m.detail.err = msg.err
		return
	}
	emails := lo.Uniq(lo.Map(msg.records, func(r models.UsageRecord, _ int) string { return r.Email }))
	rng := models.DateRange{Start: m.detail.run.RangeStart, End: m.detail.run.RangeEnd}
	m.detail.summaries = aggregate.RankByLines(aggregate.Summarize(msg.records, emails, rng))
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.ToggleMetric, m.keys.NextRun, m.keys.PrevRun, m.keys.Inspect, m.keys.Up, m.keys.Down}
}
