package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/j-veylop/cursor-usage-dashboard/internal/config"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/groups"
)

var runAt = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func dayMillis(day int) int64 {
	return time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC).UnixMilli()
}

// fakeDashboard serves a two-member team where alice has usage in both
// growth weeks and bob has none.
type fakeDashboard struct {
	status    int
	userCalls int
	csv       string
}

func (f *fakeDashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	body, _ := io.ReadAll(r.Body)

	switch r.URL.Path {
	case "/api/dashboard/get-team-spend":
		_, _ = w.Write([]byte(`{"teamMemberSpend":[
			{"userId":1,"email":"Alice@corp.com","name":"Alice"},
			{"userId":2,"email":"bob@corp.com","name":"Bob"}
		],"totalPages":1}`))
	case "/api/dashboard/get-user-analytics":
		f.userCalls++
		if gjson.GetBytes(body, "userId").Int() != 1 {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = fmt.Fprintf(w, `{"dailyMetrics":[
			{"date":"%d","linesAdded":60,"agentRequests":1},
			{"date":"%d","linesAdded":40,"totalTabsAccepted":2},
			{"date":"%d","acceptedLinesAdded":150,"composerRequests":3,"totalTabsAccepted":1}
		]}`, dayMillis(2), dayMillis(5), dayMillis(10))
	case "/api/dashboard/get-team-raw-data":
		_, _ = w.Write([]byte(f.csv))
	default:
		http.NotFound(w, r)
	}
}

func newTestManager(t *testing.T, srv *httptest.Server, mutate func(*config.Config)) *Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		CookieString:     "WorkosCursorSessionToken=abc",
		TeamID:           7,
		DefaultDays:      7,
		UsageSource:      config.SourceAnalytics,
		ReportsDir:       filepath.Join(dir, "reports"),
		EmailMappingPath: filepath.Join(dir, "email_mapping.json"),
		APIBaseURL:       srv.URL,
		APITimeout:       5 * time.Second,
	}
	if mutate != nil {
		mutate(cfg)
	}

	cohorts, err := config.ParseCohorts([]byte(`
backend:
  description: Backend
  members: [alice@corp.com, bob@corp.com, ghost@corp.com]
empty:
  members: []
`), "yaml", "test")
	require.NoError(t, err)

	m, err := NewManager(cfg, cohorts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	m.now = func() time.Time { return runAt }
	m.newID = func() string { return "run-1" }
	m.notify = func(string, string) error { return nil }
	return m
}

func TestRun_Analytics(t *testing.T) {
	fake := &fakeDashboard{}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	m := newTestManager(t, srv, nil)

	var stages []Stage
	res, err := m.Run(context.Background(), Request{Group: "Backend", OnStage: func(s Stage) { stages = append(stages, s) }})
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageAuth, StageGroup, StageFetch, StageAggregate, StageRender, StageWrite}, stages)
	assert.Equal(t, []string{"ghost@corp.com"}, res.Missing)
	assert.Equal(t, 2, fake.userCalls, "members without a user id are not queried")

	r := res.Report
	assert.Equal(t, "backend", r.Group)
	assert.Equal(t, "2026-03-08 to 2026-03-14", r.Range.String())
	assert.Equal(t, []string{"alice@corp.com", "bob@corp.com", "ghost@corp.com"}, r.Rankings.ByLines)

	alice, ok := r.Summary("alice@corp.com")
	require.True(t, ok)
	assert.Equal(t, int64(150), alice.TotalLines)
	require.NotNil(t, alice.GrowthPct)
	assert.Equal(t, 50.0, *alice.GrowthPct)

	assert.Equal(t, filepath.Join(m.cfg.ReportsDir, "cursor_analytics_backend_20260314_0930.html"), res.OutputPath)
	html, err := os.ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Cursor usage: backend")

	_, err = os.Stat(m.cfg.EmailMappingPath)
	assert.NoError(t, err, "mapping cache is written")
}

func TestRun_CSVSource(t *testing.T) {
	fake := &fakeDashboard{csv: "Date,Email,Chat Suggested Lines Added,Chat Suggested Lines Deleted,Chat Total Applies,Ask Requests,Agent Requests,Tabs Accepted\n" +
		"2026-03-12,bob@corp.com,30,10,1,1,1,5\n"}
	srv := httptest.NewServer(fake)
	defer srv.Close()
	m := newTestManager(t, srv, nil)

	res, err := m.Run(context.Background(), Request{Source: config.SourceCSV})
	require.NoError(t, err)
	assert.Zero(t, fake.userCalls)

	bob, ok := res.Report.Summary("bob@corp.com")
	require.True(t, ok)
	assert.Equal(t, int64(40), bob.TotalLines)
	assert.Equal(t, int64(3), bob.TotalChats)
	assert.Equal(t, int64(5), bob.TotalCompletions)
	assert.Equal(t, "all", res.Report.Group)
}

func TestRun_EmptyReportIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(&fakeDashboard{})
	defer srv.Close()
	m := newTestManager(t, srv, func(c *config.Config) { c.ExcludedEmails = []string{"alice@corp.com"} })

	res, err := m.Run(context.Background(), Request{Group: "all"})
	require.NoError(t, err)
	assert.True(t, res.Report.Empty)
	assert.Equal(t, []string{"bob@corp.com"}, res.Report.Rankings.ByLines)
}

func TestRun_StageErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		group  string
		stage  Stage
		target error
	}{
		{name: "Unauthorized", status: http.StatusUnauthorized, stage: StageAuth},
		{name: "ServerError", status: http.StatusBadGateway, stage: StageFetch},
		{name: "UnknownGroup", group: "nope", stage: StageGroup, target: groups.ErrGroupNotFound},
		{name: "EmptyGroup", group: "empty", stage: StageGroup, target: groups.ErrGroupEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(&fakeDashboard{status: tt.status})
			defer srv.Close()
			m := newTestManager(t, srv, nil)

			_, err := m.Run(context.Background(), Request{Group: tt.group})
			require.Error(t, err)

			var se *StageError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.stage, se.Stage)
			assert.True(t, strings.HasPrefix(err.Error(), string(tt.stage)+" failed"))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestRun_History(t *testing.T) {
	srv := httptest.NewServer(&fakeDashboard{})
	defer srv.Close()
	m := newTestManager(t, srv, func(c *config.Config) {
		c.HistoryDBPath = filepath.Join(filepath.Dir(c.ReportsDir), "history.db")
	})

	res, err := m.Run(context.Background(), Request{Group: "backend"})
	require.NoError(t, err)
	require.NotNil(t, res.Trend)
	require.Len(t, res.Trend.Runs, 1)
	assert.Equal(t, int64(150), res.Trend.Runs[0].Lines)

	m.newID = func() string { return "run-2" }
	res, err = m.Run(context.Background(), Request{Group: "backend"})
	require.NoError(t, err)
	assert.Len(t, res.Trend.Runs, 2)
}

func TestRun_HistoryRetention(t *testing.T) {
	srv := httptest.NewServer(&fakeDashboard{})
	defer srv.Close()
	m := newTestManager(t, srv, func(c *config.Config) {
		c.HistoryDBPath = filepath.Join(filepath.Dir(c.ReportsDir), "history.db")
		c.HistoryRetentionDays = 30
	})
	ctx := context.Background()

	m.now = func() time.Time { return runAt.AddDate(0, 0, -40) }
	m.newID = func() string { return "run-old" }
	_, err := m.Run(ctx, Request{Group: "backend"})
	require.NoError(t, err)

	m.now = func() time.Time { return runAt }
	m.newID = func() string { return "run-new" }
	res, err := m.Run(ctx, Request{Group: "backend"})
	require.NoError(t, err)
	require.NotNil(t, res.Trend)
	require.Len(t, res.Trend.Runs, 1, "runs older than the retention window are dropped")
	assert.Equal(t, "run-new", res.Trend.Runs[0].ID)

	old, err := m.RunUsage(ctx, "run-old")
	require.NoError(t, err)
	assert.Empty(t, old)

	kept, err := m.RunUsage(ctx, "run-new")
	require.NoError(t, err)
	assert.NotEmpty(t, kept)
}

func TestRunUsage_HistoryDisabled(t *testing.T) {
	srv := httptest.NewServer(&fakeDashboard{})
	defer srv.Close()
	m := newTestManager(t, srv, nil)

	_, err := m.RunUsage(context.Background(), "run-1")
	assert.Error(t, err)
}

func TestRun_Notify(t *testing.T) {
	srv := httptest.NewServer(&fakeDashboard{})
	defer srv.Close()
	m := newTestManager(t, srv, nil)

	var titles []string
	m.notify = func(title, _ string) error {
		titles = append(titles, title)
		return errors.New("no notification daemon")
	}

	_, err := m.Run(context.Background(), Request{Notify: true})
	require.NoError(t, err, "notification failures are not fatal")
	assert.Equal(t, []string{"Cursor usage: all"}, titles)
}

func TestNewManager_BadCookie(t *testing.T) {
	_, err := NewManager(&config.Config{CookieString: ";"}, nil)
	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, StageAuth, se.Stage)
}
