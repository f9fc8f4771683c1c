package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services"
)

type fakeRunner struct {
	res    *services.Result
	err    error
	stages []services.Stage
	calls  int
}

func (f *fakeRunner) Run(_ context.Context, req services.Request) (*services.Result, error) {
	f.calls++
	for _, s := range f.stages {
		if req.OnStage != nil {
			req.OnStage(s)
		}
	}
	return f.res, f.err
}

type fakeTab struct {
	name string
	msgs []tea.Msg
	w, h int
}

func (f *fakeTab) Init() tea.Cmd { return nil }

func (f *fakeTab) Update(msg tea.Msg) (Tab, tea.Cmd) {
	f.msgs = append(f.msgs, msg)
	return f, nil
}

func (f *fakeTab) View() string              { return "content of " + f.name }
func (f *fakeTab) SetSize(width, height int) { f.w, f.h = width, height }
func (f *fakeTab) ShortHelp() []key.Binding {
	return []key.Binding{key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort"))}
}

func sampleResult() *services.Result {
	return &services.Result{
		Report:     &models.Report{Group: "backend"},
		OutputPath: "/tmp/reports/cursor_analytics_backend_20260314_0930.html",
	}
}

func newTestModel(runner Runner) (*Model, []*fakeTab) {
	m := NewModel(context.Background(), runner, services.Request{Group: "backend"})
	tabs := []*fakeTab{{name: "dashboard"}, {name: "members"}, {name: "history"}, {name: "info"}}
	m.SetTabs([]Tab{tabs[0], tabs[1], tabs[2], tabs[3]})
	return m, tabs
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewModel(t *testing.T) {
	m := NewModel(context.Background(), nil, services.Request{})
	if m.ActiveTab() != TabDashboard {
		t.Error("default tab should be Dashboard")
	}
	if len(m.tabs) != 4 {
		t.Errorf("got %d tab slots, want 4", len(m.tabs))
	}
	if m.State() == nil {
		t.Error("state should be initialized")
	}
}

func TestTabID_String(t *testing.T) {
	if TabMembers.String() != "Members" {
		t.Errorf("TabMembers.String() = %q", TabMembers.String())
	}
	if TabID(9).String() != "Unknown" {
		t.Errorf("TabID(9).String() = %q", TabID(9).String())
	}
}

func TestGenerateCmd(t *testing.T) {
	runner := &fakeRunner{res: sampleResult(), stages: []services.Stage{services.StageAuth, services.StageFetch}}
	stages := make(chan string, 8)

	msg := generateCmd(context.Background(), runner, services.Request{}, stages)()
	loaded, ok := msg.(ReportLoadedMsg)
	if !ok {
		t.Fatalf("got %T, want ReportLoadedMsg", msg)
	}
	if loaded.Result != runner.res || loaded.Err != nil {
		t.Errorf("unexpected result %+v", loaded)
	}

	var got []string
	for s := range stages {
		got = append(got, s)
	}
	if strings.Join(got, ",") != "auth,fetch" {
		t.Errorf("stages = %v", got)
	}

	if msg := waitForStageCmd(stages)(); msg != nil {
		t.Errorf("closed channel should yield nil, got %T", msg)
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	m, tabs := newTestModel(nil)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	if !m.ready {
		t.Error("model should be ready after WindowSizeMsg")
	}
	if tabs[0].w != 100 || tabs[0].h != 46 {
		t.Errorf("tab size = %dx%d, want 100x46", tabs[0].w, tabs[0].h)
	}
}

func TestModel_TabKeys(t *testing.T) {
	m, _ := newTestModel(nil)

	tests := []struct {
		key  tea.KeyMsg
		want TabID
	}{
		{runes("2"), TabMembers},
		{runes("4"), TabInfo},
		{tea.KeyMsg{Type: tea.KeyTab}, TabDashboard},
		{tea.KeyMsg{Type: tea.KeyShiftTab}, TabInfo},
		{runes("3"), TabHistory},
	}
	for _, tt := range tests {
		m.Update(tt.key)
		if m.ActiveTab() != tt.want {
			t.Errorf("after %q active tab = %v, want %v", tt.key.String(), m.ActiveTab(), tt.want)
		}
	}
}

func TestModel_ReportLoaded_Broadcasts(t *testing.T) {
	m, tabs := newTestModel(nil)
	res := sampleResult()

	m.Update(ReportLoadedMsg{Result: res})

	if m.State().Result() != res {
		t.Error("state should hold the new result")
	}
	for _, tab := range tabs {
		if len(tab.msgs) != 1 {
			t.Errorf("tab %s got %d messages, want 1", tab.name, len(tab.msgs))
		}
	}
	if n := len(m.State().Notifications()); n != 0 {
		t.Errorf("notifications are added by command, got %d already", n)
	}
}

func TestModel_Stage(t *testing.T) {
	m, _ := newTestModel(nil)
	m.stages = make(chan string)

	_, cmd := m.Update(StageMsg{Stage: "render"})
	if m.State().Stage() != "render" {
		t.Errorf("Stage() = %q", m.State().Stage())
	}
	if cmd == nil {
		t.Error("a stage change should keep listening")
	}
}

func TestModel_Refresh(t *testing.T) {
	runner := &fakeRunner{res: sampleResult()}
	m, _ := newTestModel(runner)

	m.State().SetLoading(true)
	_, cmd := m.Update(runes("r"))
	msg := cmd()
	if n, ok := msg.(AddNotificationMsg); !ok || n.Type != NotificationInfo {
		t.Errorf("refresh while loading should notify, got %#v", msg)
	}

	m.State().SetLoading(false)
	_, cmd = m.Update(runes("r"))
	if cmd == nil {
		t.Fatal("refresh should start a run")
	}
	if !m.State().IsLoading() {
		t.Error("refresh should mark the state as loading")
	}
}

func TestModel_OpenAndCopy(t *testing.T) {
	m, _ := newTestModel(nil)

	var opened, copied string
	m.openPath = func(p string) error { opened = p; return nil }
	m.copyText = func(s string) error { copied = s; return errors.New("no clipboard") }

	_, cmd := m.Update(runes("o"))
	if n, ok := cmd().(AddNotificationMsg); !ok || n.Type != NotificationWarning {
		t.Error("open without a result should warn")
	}

	m.State().SetResult(sampleResult(), nil)
	_, cmd = m.Update(runes("o"))
	if msg, ok := cmd().(OpenResultMsg); !ok || msg.Error != nil {
		t.Errorf("unexpected open result %#v", msg)
	}
	if opened != sampleResult().OutputPath {
		t.Errorf("opened %q", opened)
	}

	_, cmd = m.Update(runes("c"))
	msg, ok := cmd().(CopyResultMsg)
	if !ok || msg.Error == nil {
		t.Errorf("unexpected copy result %#v", msg)
	}
	if copied != sampleResult().OutputPath {
		t.Errorf("copied %q", copied)
	}
}

func TestModel_View(t *testing.T) {
	m, _ := newTestModel(nil)
	if !strings.Contains(m.View(), "Loading") {
		t.Error("view before sizing should show loading")
	}

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	view := ansi.Strip(m.View())
	for _, want := range []string{"Dashboard", "Members", "History", "Info", "content of dashboard", "regenerate"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m.Update(runes("?"))
	view = ansi.Strip(m.View())
	if !strings.Contains(view, "Keyboard Shortcuts") || !strings.Contains(view, "sort") {
		t.Error("help overlay should list global and tab keys")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.showHelp {
		t.Error("esc should close help")
	}
}

func TestModel_Toasts(t *testing.T) {
	m, _ := newTestModel(nil)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(AddNotificationMsg{Type: NotificationError, Message: "fetch failed: boom"})

	if view := ansi.Strip(m.View()); !strings.Contains(view, "[ERR] fetch failed: boom") {
		t.Errorf("toast missing from view:\n%s", view)
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(nil)
	_, cmd := m.Update(runes("q"))
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}
