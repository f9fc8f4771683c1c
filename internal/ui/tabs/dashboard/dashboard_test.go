package dashboard

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/cursor-usage-dashboard/internal/app"
	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/aggregate"
)

func sampleResult(records []models.UsageRecord) *services.Result {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rng := models.LastNDays(now, 7)
	rep := aggregate.Build(records, []string{"alice@corp.com", "bob@corp.com"}, "backend", 7, rng, now, "run-1")
	return &services.Result{
		Report:     rep,
		OutputPath: "reports/cursor_analytics_backend_20260314_0930.html",
		Missing:    []string{"ghost@corp.com"},
	}
}

func TestModel_Pending(t *testing.T) {
	state := app.NewState()
	m := New(state)
	m.SetSize(100, 30)

	if view := ansi.Strip(m.View()); !strings.Contains(view, "Generating dashboard") {
		t.Errorf("pending view = %q", view)
	}

	state.SetResult(nil, errors.New("auth failed: session expired"))
	if view := ansi.Strip(m.View()); !strings.Contains(view, "auth failed: session expired") {
		t.Errorf("error view = %q", view)
	}
}

func TestModel_View(t *testing.T) {
	state := app.NewState()
	state.SetResult(sampleResult([]models.UsageRecord{
		{Email: "alice@corp.com", Date: models.NewDay(2026, 3, 12), LinesOfAgentCode: 120, ChatInteractions: 3},
		{Email: "bob@corp.com", Date: models.NewDay(2026, 3, 13), TabCompletions: 4},
	}), nil)

	m := New(state)
	m.SetSize(120, 200)
	view := ansi.Strip(m.View())

	for _, want := range []string{
		"Cursor usage: backend",
		"2026-03-08 to 2026-03-14",
		"Not in team: ghost@corp.com",
		"Daily activity",
		"Most persistent",
		"Alice",
		"cursor_analytics_backend_20260314_0930.html",
	} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "No usage was recorded") {
		t.Error("non-empty report should not show the empty warning")
	}
}

func TestModel_EmptyReport(t *testing.T) {
	state := app.NewState()
	state.SetResult(sampleResult(nil), nil)

	m := New(state)
	m.SetSize(120, 100)
	view := ansi.Strip(m.View())

	if !strings.Contains(view, "No usage was recorded") {
		t.Error("empty report should show the empty warning")
	}
	if strings.Contains(view, "Daily activity") {
		t.Error("empty report should skip charts")
	}
}

func TestModel_Update(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(80, 10)

	tab, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if tab == nil {
		t.Fatal("Update returned nil tab")
	}
	if _, cmd := m.Update(app.ReportLoadedMsg{}); cmd != nil {
		t.Error("ReportLoadedMsg needs no command")
	}
	if len(m.ShortHelp()) != 2 {
		t.Errorf("ShortHelp() has %d bindings, want 2", len(m.ShortHelp()))
	}
}
