package info

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/cursor-usage-dashboard/internal/app"
	"github.com/j-veylop/cursor-usage-dashboard/internal/config"
	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services"
	"github.com/j-veylop/cursor-usage-dashboard/internal/version"
)

func TestModel_View(t *testing.T) {
	version.Reset()
	version.Version, version.Commit, version.Date = "1.2.0", "abc1234", "2026-03-14"
	t.Cleanup(version.Reset)

	state := app.NewState()
	state.SetResult(&services.Result{Report: &models.Report{}, OutputPath: "reports/latest.html"}, nil)

	cfg := &config.Config{
		CookieString:     "WorkosCursorSessionToken=secret",
		TeamID:           42,
		DefaultDays:      14,
		UsageSource:      config.SourceCSV,
		ReportsDir:       "reports",
		EmailMappingPath: "email_mapping.json",
		LogLevel:         "warn",
		ObjectStore:      config.ObjectStoreConfig{Endpoint: "minio:9000", Bucket: "dash", Prefix: "cursor"},
	}
	m := New(state, cfg, "backend")
	m.SetSize(100, 60)

	view := ansi.Strip(m.View())
	for _, want := range []string{"42", "backend", "csv", "built-in", "disabled", "minio:9000/dash/cursor", "reports/latest.html", "1.2.0", "abc1234"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Contains(view, "secret") {
		t.Error("the session cookie must never be displayed")
	}
}

func TestModel_NilConfig(t *testing.T) {
	m := New(app.NewState(), nil, "all")
	m.SetSize(80, 40)
	if !strings.Contains(ansi.Strip(m.View()), "Configuration not loaded") {
		t.Error("nil config should be reported")
	}
}

func TestModel_Update(t *testing.T) {
	m := New(app.NewState(), &config.Config{}, "all")
	m.SetSize(80, 5)

	tab, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	if tab == nil {
		t.Fatal("Update returned nil tab")
	}
	if _, cmd := m.Update(app.ReportLoadedMsg{}); cmd != nil {
		t.Error("non-key messages need no command")
	}
	if len(m.ShortHelp()) != 2 {
		t.Errorf("ShortHelp() has %d bindings", len(m.ShortHelp()))
	}
}
