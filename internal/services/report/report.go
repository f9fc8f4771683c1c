// Package report renders aggregated usage into a self-contained HTML
// dashboard.
package report

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

// FilenameLayout is the timestamp layout embedded in dashboard filenames.
const FilenameLayout = "20060102_1504"

// leaderboardSize is the number of rows in each pre-rendered leaderboard.
const leaderboardSize = 10

//go:embed templates/dashboard.html.tmpl
var templateFS embed.FS

var dashboardTmpl = template.Must(
	template.New("dashboard.html.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/dashboard.html.tmpl"),
)

var funcs = template.FuncMap{
	"comma":       func(v int64) string { return humanize.Comma(v) },
	"growth":      formatGrowth,
	"growthClass": growthClass,
	"pct":         func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"add1":        func(i int) int { return i + 1 },
}

var palette = []string{
	"#8b5cf6", "#06b6d4", "#10b981", "#f59e0b", "#ef4444",
	"#8884d8", "#82ca9d", "#ffc658", "#ff7300", "#00c49f",
	"#ffbb28", "#ff8042", "#a4de6c", "#ffc0cb", "#87ceeb",
	"#dda0dd", "#98fb98", "#f0e68c", "#ff6347", "#40e0d0",
	"#ee82ee", "#90ee90", "#ffb6c1", "#ffd700", "#ff69b4",
}

// Render writes the dashboard for r to w. Rendering the same report twice
// produces identical output.
func Render(w io.Writer, r *models.Report) error {
	if r == nil {
		return fmt.Errorf("render dashboard: nil report")
	}
	if err := dashboardTmpl.Execute(w, newView(r)); err != nil {
		return fmt.Errorf("render dashboard: %w", err)
	}
	return nil
}

// Filename returns the dashboard filename for group generated at t, e.g.
// cursor_analytics_backend_20260314_0930.html.
func Filename(group string, t time.Time) string {
	return fmt.Sprintf("cursor_analytics_%s_%s.html", sanitize(group), t.Format(FilenameLayout))
}

// WriteFile atomically writes a rendered dashboard to dir/name.
func WriteFile(dir, name string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	path := filepath.Join(dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write dashboard: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("rename dashboard: %w", err)
	}
	return path, nil
}

func sanitize(group string) string {
	group = strings.ToLower(strings.TrimSpace(group))
	if group == "" {
		return models.AllGroup
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, group)
}

func formatGrowth(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", *v)
}

func growthClass(v *float64) string {
	switch {
	case v == nil:
		return "flat"
	case *v > 0:
		return "up"
	case *v < 0:
		return "down"
	}
	return "flat"
}

type view struct {
	Title       string
	Group       string
	Range       string
	GeneratedAt string
	Empty       bool
	Totals      models.Totals
	Mix         models.UsageMix

	ByLines     []models.UserSummary
	ByChats     []models.UserSummary
	ByGrowth    []models.UserSummary
	Persistence []models.PersistenceEntry
	Users       []models.UserSummary

	Data dataset
}

type dataset struct {
	Group  string        `json:"group"`
	Labels []string      `json:"labels"`
	Users  []datasetUser `json:"users"`
	Team   series        `json:"team"`
	Mix    []mixSlice    `json:"mix"`
}

type series struct {
	Lines       []int64 `json:"lines"`
	Chats       []int64 `json:"chats"`
	Completions []int64 `json:"completions"`
}

type datasetUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Color string `json:"color"`
	series
}

type mixSlice struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

func newView(r *models.Report) view {
	v := view{
		Title:       fmt.Sprintf("Cursor usage: %s", r.Group),
		Group:       r.Group,
		Range:       r.Range.String(),
		GeneratedAt: r.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		Empty:       r.Empty,
		Totals:      r.Totals,
		Mix:         r.Mix,
		Persistence: r.Persistence,
		Users:       r.Summaries,
	}
	v.ByLines = leaders(r, r.Rankings.ByLines, func(s *models.UserSummary) bool { return s.TotalLines > 0 })
	v.ByChats = leaders(r, r.Rankings.ByChats, func(s *models.UserSummary) bool { return s.TotalChats > 0 })
	v.ByGrowth = leaders(r, r.Rankings.ByGrowth, func(s *models.UserSummary) bool { return s.GrowthPct != nil })

	d := dataset{
		Group:  r.Group,
		Labels: lo.Map(r.Range.Each(), func(d models.Day, _ int) string { return d.String() }),
		Team:   toSeries(r.Daily),
		Mix: []mixSlice{
			{Name: "Tab Completions", Value: r.Mix.CompletionsPct, Color: "#8b5cf6"},
			{Name: "Chat Interactions", Value: r.Mix.ChatsPct, Color: "#06b6d4"},
			{Name: "Lines of Agent Code", Value: r.Mix.LinesPct, Color: "#10b981"},
		},
	}
	for i, s := range r.Summaries {
		d.Users = append(d.Users, datasetUser{
			Email:  s.Email,
			Name:   s.Name,
			Color:  palette[i%len(palette)],
			series: toSeries(s.Daily),
		})
	}
	v.Data = d
	return v
}

func leaders(r *models.Report, order []string, keep func(*models.UserSummary) bool) []models.UserSummary {
	var out []models.UserSummary
	for _, email := range order {
		s, ok := r.Summary(email)
		if !ok || !keep(s) {
			continue
		}
		out = append(out, *s)
		if len(out) == leaderboardSize {
			break
		}
	}
	return out
}

func toSeries(points []models.DailyPoint) series {
	s := series{
		Lines:       make([]int64, len(points)),
		Chats:       make([]int64, len(points)),
		Completions: make([]int64, len(points)),
	}
	for i, p := range points {
		s.Lines[i] = p.Lines
		s.Chats[i] = p.Chats
		s.Completions[i] = p.Completions
	}
	return s
}
