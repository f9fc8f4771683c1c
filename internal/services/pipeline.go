// Package services wires the fetch, aggregate and render stages into one run.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/j-veylop/cursor-usage-dashboard/internal/config"
	"github.com/j-veylop/cursor-usage-dashboard/internal/cursor"
	"github.com/j-veylop/cursor-usage-dashboard/internal/db"
	"github.com/j-veylop/cursor-usage-dashboard/internal/logger"
	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/aggregate"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/groups"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/mapping"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/publish"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/report"
)

// Stage names a step of a run. Failures are reported with the stage they
// happened in.
type Stage string

// Run stages, in order.
const (
	StageConfig    Stage = "config"
	StageAuth      Stage = "auth"
	StageGroup     Stage = "group resolution"
	StageFetch     Stage = "fetch"
	StageAggregate Stage = "aggregate"
	StageRender    Stage = "render"
	StageWrite     Stage = "write"
	StagePublish   Stage = "publish"
)

// historyRuns is how many earlier runs are loaded for the console trend.
const historyRuns = 20

// ErrNoMembers is returned when the team list comes back empty.
var ErrNoMembers = errors.New("team has no members")

// StageError is a run failure tagged with its stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(stage Stage, err error) error {
	return &StageError{Stage: stage, Err: err}
}

// Request describes one run.
type Request struct {
	// Group is a cohort name or "all". Empty means "all".
	Group string
	// Days is the report length. Zero uses the configured default.
	Days int
	// Source overrides the configured usage source.
	Source string
	// Notify sends a desktop notification when the run finishes.
	Notify bool
	// OnStage, if set, is called as each stage starts.
	OnStage func(Stage)
}

// Result is the outcome of a successful run.
type Result struct {
	Report       *models.Report
	OutputPath   string
	PublishedURI string
	// Missing lists cohort emails the team list does not know.
	Missing []string
	// Trend is set when the history store is enabled.
	Trend *models.HistoryTrend
}

// Manager runs report generation.
type Manager struct {
	cfg       *config.Config
	client    *cursor.Client
	cohorts   *config.Cohorts
	resolver  *groups.Resolver
	mapping   *mapping.Service
	database  *db.DB
	publisher *publish.Publisher

	now    func() time.Time
	newID  func() string
	notify func(title, message string) error
}

// NewManager creates a manager from validated configuration.
func NewManager(cfg *config.Config, cohorts *config.Cohorts) (*Manager, error) {
	client, err := cursor.New(cursor.Config{
		BaseURL:           cfg.APIBaseURL,
		Cookie:            cfg.CookieString,
		Timeout:           cfg.APITimeout,
		MaxRetries:        cfg.APIMaxRetries,
		RequestsPerSecond: cfg.APIRequestsPerSecond,
	})
	if err != nil {
		return nil, stageErr(StageAuth, err)
	}

	m := &Manager{
		cfg:      cfg,
		client:   client,
		cohorts:  cohorts,
		resolver: groups.New(cohorts, cfg.ExcludedEmails),
		mapping:  mapping.Load(cfg.EmailMappingPath),
		now:      time.Now,
		newID:    uuid.NewString,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}

	if cfg.HistoryDBPath != "" {
		m.database, err = db.New(cfg.HistoryDBPath)
		if err != nil {
			return nil, stageErr(StageConfig, fmt.Errorf("failed to initialize history database: %w", err))
		}
	}

	if cfg.ObjectStore.Enabled() {
		m.publisher, err = publish.New(cfg.ObjectStore)
		if err != nil {
			_ = m.Close()
			return nil, stageErr(StageConfig, err)
		}
	}

	return m, nil
}

// SetCohorts replaces the cohort table used by later runs.
func (m *Manager) SetCohorts(cohorts *config.Cohorts) {
	m.cohorts = cohorts
	m.resolver = groups.New(cohorts, m.cfg.ExcludedEmails)
}

// Run generates one report.
func (m *Manager) Run(ctx context.Context, req Request) (*Result, error) {
	enter := func(s Stage) {
		logger.Debug("Entering stage", "stage", string(s))
		if req.OnStage != nil {
			req.OnStage(s)
		}
	}

	days := req.Days
	if days <= 0 {
		days = m.cfg.DefaultDays
	}
	source := req.Source
	if source == "" {
		source = m.cfg.UsageSource
	}
	group := strings.ToLower(strings.TrimSpace(req.Group))
	if groups.IsAll(group) {
		group = models.AllGroup
	}
	teamID := m.cfg.TeamID

	enter(StageAuth)
	members, err := m.client.FetchTeamMembers(ctx, teamID)
	if err != nil {
		if cursor.IsAuth(err) {
			return nil, stageErr(StageAuth, err)
		}
		return nil, stageErr(StageFetch, fmt.Errorf("failed to fetch team members: %w", err))
	}
	if len(members) == 0 {
		return nil, stageErr(StageFetch, ErrNoMembers)
	}
	logger.Info("Fetched team members", "team", teamID, "count", len(members))

	if n := m.mapping.Merge(teamID, members); n > 0 {
		logger.Debug("Updated email mapping", "changed", n, "entries", m.mapping.Len())
	}
	if err := m.mapping.Save(); err != nil {
		logger.Warn("Failed to save email mapping", "path", m.mapping.Path(), "error", err)
	}

	enter(StageGroup)
	teamEmails := lo.Map(members, func(mb models.Member, _ int) string { return mb.Email })
	emails, err := m.resolver.Resolve(group, teamEmails)
	if err != nil {
		return nil, stageErr(StageGroup, err)
	}
	missing := groups.NotInTeam(emails, teamEmails)
	if len(missing) > 0 {
		logger.Warn("Group members not found in team", "group", group, "emails", strings.Join(missing, ", "))
	}

	enter(StageFetch)
	now := m.now()
	rng := models.LastNDays(now, days)
	records, err := m.fetchUsage(ctx, source, teamID, emails, members, aggregate.GrowthRange(rng))
	if err != nil {
		if cursor.IsAuth(err) {
			return nil, stageErr(StageAuth, err)
		}
		return nil, stageErr(StageFetch, err)
	}
	logger.Info("Fetched usage", "source", source, "records", len(records), "range", rng.String())

	enter(StageAggregate)
	rep := aggregate.Build(records, emails, group, teamID, rng, now, m.newID())
	if rep.Empty {
		logger.Warn("No usage recorded for group", "group", group, "range", rng.String())
	}

	enter(StageRender)
	var buf bytes.Buffer
	if err := report.Render(&buf, rep); err != nil {
		return nil, stageErr(StageRender, err)
	}

	enter(StageWrite)
	path, err := report.WriteFile(m.cfg.ReportsDir, report.Filename(group, now), buf.Bytes())
	if err != nil {
		return nil, stageErr(StageWrite, err)
	}
	logger.Info("Dashboard written", "path", path)

	res := &Result{Report: rep, OutputPath: path, Missing: missing}
	res.Trend = m.recordHistory(ctx, rep, path)

	if m.publisher != nil {
		enter(StagePublish)
		uri, err := m.publisher.Upload(ctx, path)
		if err != nil {
			return res, stageErr(StagePublish, err)
		}
		res.PublishedURI = uri
	}

	if req.Notify {
		title := fmt.Sprintf("Cursor usage: %s", group)
		body := fmt.Sprintf("%d active of %d members, %d lines", rep.Totals.ActiveUsers, rep.Totals.Members, rep.Totals.Lines)
		if err := m.notify(title, body); err != nil {
			logger.Warn("Failed to send notification", "error", err)
		}
	}

	return res, nil
}

func (m *Manager) fetchUsage(ctx context.Context, source string, teamID int64, emails []string,
	team []models.Member, rng models.DateRange,
) ([]models.UsageRecord, error) {
	switch source {
	case config.SourceCSV:
		records, err := m.client.FetchTeamRawUsage(ctx, teamID, rng)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch raw usage: %w", err)
		}
		return records, nil
	case config.SourceAnalytics, "":
		return m.client.FetchTeamUsage(ctx, teamID, m.mapping.Resolve(teamID, emails, team), rng)
	default:
		return nil, fmt.Errorf("unknown usage source %q", source)
	}
}

// recordHistory stores the run and returns the group's trend. History is
// best effort: failures are logged and the run still succeeds.
func (m *Manager) recordHistory(ctx context.Context, rep *models.Report, path string) *models.HistoryTrend {
	if m.database == nil {
		return nil
	}

	run := models.RunRecord{
		ID:          rep.ID,
		Group:       rep.Group,
		TeamID:      rep.TeamID,
		RangeStart:  rep.Range.Start,
		RangeEnd:    rep.Range.End,
		GeneratedAt: rep.GeneratedAt,
		Members:     rep.Totals.Members,
		ActiveUsers: rep.Totals.ActiveUsers,
		Lines:       rep.Totals.Lines,
		Chats:       rep.Totals.Chats,
		Completions: rep.Totals.Completions,
		OutputPath:  path,
	}
	if err := m.database.SaveRun(ctx, run, rep.Summaries); err != nil {
		logger.Warn("Failed to record run history", "error", err)
		return nil
	}
	m.pruneHistory(ctx, rep.GeneratedAt)

	trend, err := m.database.Trend(ctx, rep.Group, historyRuns)
	if err != nil {
		logger.Warn("Failed to load run history", "error", err)
		return nil
	}
	return trend
}

// pruneHistory drops runs older than the retention window and compacts the
// file when anything was removed.
func (m *Manager) pruneHistory(ctx context.Context, now time.Time) {
	days := m.cfg.HistoryRetentionDays
	if days <= 0 {
		return
	}
	n, err := m.database.DeleteRunsBefore(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		logger.Warn("Failed to prune run history", "error", err)
		return
	}
	if n == 0 {
		return
	}
	logger.Info("Pruned run history", "runs", n, "retention_days", days)
	if err := m.database.Vacuum(); err != nil {
		logger.Warn("Failed to compact run history", "error", err)
	}
}

// RunUsage returns the daily usage stored for a recorded run.
func (m *Manager) RunUsage(ctx context.Context, runID string) ([]models.UsageRecord, error) {
	if m.database == nil {
		return nil, errors.New("run history is disabled")
	}
	return m.database.RunUsage(ctx, runID)
}

// Close releases the history store.
func (m *Manager) Close() error {
	if m.database != nil {
		return m.database.Close()
	}
	return nil
}
