// Package main is the entry point for the Cursor usage dashboard generator.
// It loads configuration, fetches team usage and writes an HTML dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/pflag"

	"github.com/j-veylop/cursor-usage-dashboard/internal/app"
	"github.com/j-veylop/cursor-usage-dashboard/internal/config"
	"github.com/j-veylop/cursor-usage-dashboard/internal/logger"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/groups"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services/watch"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/console"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/picker"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/progress"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/tabs/dashboard"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/tabs/history"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/tabs/info"
	"github.com/j-veylop/cursor-usage-dashboard/internal/ui/tabs/members"
	"github.com/j-veylop/cursor-usage-dashboard/internal/version"
)

const defaultWidth = 100

// options are the parsed command-line flags.
type options struct {
	group      string
	days       int
	teamID     int64
	cookie     string
	outputDir  string
	source     string
	logLevel   string
	listGroups bool
	open       bool
	notify     bool
	watch      bool
	history    bool
	pick       bool
	tui        bool
	version    bool
	help       bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run contains the main application logic, separated for cleaner error handling.
func run(args []string, stdout, stderr io.Writer) error {
	fs, opts := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return configErr(err)
	}
	if opts.help {
		printUsage(stdout, fs)
		return nil
	}
	if opts.version {
		fmt.Fprintln(stdout, version.Info())
		return nil
	}

	// 1. Load configuration from .env files and environment variables
	cfg, err := config.Load()
	if err != nil {
		return configErr(err)
	}
	applyOverrides(cfg, fs, opts)

	closer, err := logger.Setup(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Quiet: opts.tui})
	if err != nil {
		return configErr(err)
	}
	defer func() { _ = closer.Close() }()

	cohorts, err := config.LoadCohorts(cfg.GroupsFile)
	if err != nil {
		return configErr(err)
	}
	if opts.listGroups {
		resolver := groups.New(cohorts, cfg.ExcludedEmails)
		fmt.Fprint(stdout, console.RenderGroups(resolver.List(), cohorts.Source(), resolver.Excluded()))
		return nil
	}

	// 2. Credentials are only needed once we talk to the API
	if err := cfg.Validate(); err != nil {
		return configErr(err)
	}
	if opts.watch && cfg.GroupsFile == "" {
		return configErr(errors.New("--watch needs GROUPS_FILE to point at a groups file"))
	}
	if opts.watch && opts.tui {
		return configErr(errors.New("--watch and --tui cannot be combined; press r in the viewer to regenerate"))
	}

	if opts.pick {
		choice, err := picker.Run(cohorts.All(), os.Stdin, stderr)
		if err != nil {
			return err
		}
		opts.group = choice
	}

	// 3. Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcManager, err := services.NewManager(cfg, cohorts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svcManager.Close(); closeErr != nil {
			fmt.Fprintf(stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	req := services.Request{
		Group:  opts.group,
		Days:   cfg.DefaultDays,
		Source: cfg.UsageSource,
		Notify: opts.notify || cfg.Notify,
	}
	if opts.tui {
		return runTUI(ctx, svcManager, req, cfg)
	}

	generate := func() error {
		res, err := execute(ctx, svcManager, req, cfg.LogLevel, stderr)
		if res != nil {
			fmt.Fprint(stdout, console.Render(console.Summary{
				Report:       res.Report,
				OutputPath:   res.OutputPath,
				PublishedURI: res.PublishedURI,
				Trend:        res.Trend,
			}, terminalWidth()))
		}
		if err != nil {
			return err
		}
		if opts.open {
			if err := open.Run(res.OutputPath); err != nil {
				logger.Warn("Failed to open dashboard", "path", res.OutputPath, "error", err)
			}
		}
		return nil
	}

	// 4. Generate the dashboard
	if err := generate(); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	// 5. Regenerate whenever the groups file changes
	fmt.Fprintf(stderr, "Watching %s for changes (Ctrl+C to stop)\n", cfg.GroupsFile)
	err = watch.File(ctx, cfg.GroupsFile, watch.DefaultDebounce, func() {
		reloaded, err := config.LoadCohorts(cfg.GroupsFile)
		if err != nil {
			logger.Error("Failed to reload groups", "path", cfg.GroupsFile, "error", err)
			return
		}
		svcManager.SetCohorts(reloaded)
		if err := generate(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// execute runs the pipeline, with a spinner when stderr is an interactive
// terminal and info logs are not being written to it.
func execute(ctx context.Context, m *services.Manager, req services.Request, level string, stderr io.Writer) (*services.Result, error) {
	lvl, _ := logger.ParseLevel(level)
	if !isTerminal(stderr) || lvl < slog.LevelWarn {
		return m.Run(ctx, req)
	}

	var res *services.Result
	err := progress.Run(stderr, string(services.StageAuth), func(stage func(string)) error {
		req.OnStage = func(s services.Stage) { stage(string(s)) }
		var err error
		res, err = m.Run(ctx, req)
		return err
	})
	return res, err
}

// runTUI opens the interactive viewer. It generates the first dashboard on
// start and again whenever the user asks for it.
func runTUI(ctx context.Context, m *services.Manager, req services.Request, cfg *config.Config) error {
	model := app.NewModel(ctx, m, req)

	var loadRun history.RunLoader
	if cfg.HistoryDBPath != "" {
		loadRun = m.RunUsage
	}

	state := model.State()
	model.SetTabs([]app.Tab{
		dashboard.New(state),
		members.New(state),
		history.New(state, loadRun),
		info.New(state, cfg, req.Group),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Send(tea.Quit())
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	if err := state.Err(); err != nil && state.Result() == nil {
		return err
	}
	return nil
}

func newFlagSet(stderr io.Writer) (*pflag.FlagSet, *options) {
	opts := &options{}
	fs := pflag.NewFlagSet("cud", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVarP(&opts.group, "group", "g", "all", "group to report on (see --list-groups)")
	fs.IntVarP(&opts.days, "days", "d", 0, "number of days to include, ending today (default DEFAULT_DAYS or 7)")
	fs.Int64VarP(&opts.teamID, "team-id", "t", 0, "Cursor team id (overrides TEAM_ID)")
	fs.StringVarP(&opts.cookie, "cookie", "c", "", "Cursor session cookie string (overrides CURSOR_COOKIE_STRING)")
	fs.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory for generated dashboards (overrides REPORTS_DIR)")
	fs.StringVar(&opts.source, "source", "", "usage source: analytics or csv (overrides USAGE_SOURCE)")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	fs.BoolVar(&opts.listGroups, "list-groups", false, "list configured groups and exit")
	fs.BoolVar(&opts.open, "open", false, "open the dashboard in the default browser")
	fs.BoolVar(&opts.notify, "notify", false, "send a desktop notification when done")
	fs.BoolVar(&opts.watch, "watch", false, "regenerate when the groups file changes")
	fs.BoolVar(&opts.history, "history", false, "record runs in the history database")
	fs.BoolVar(&opts.pick, "pick", false, "choose the group interactively")
	fs.BoolVar(&opts.tui, "tui", false, "browse the report in an interactive viewer")
	fs.BoolVarP(&opts.version, "version", "v", false, "show version information")
	fs.BoolVarP(&opts.help, "help", "h", false, "show this help message")
	return fs, opts
}

// applyOverrides lets explicitly set flags win over the environment.
func applyOverrides(cfg *config.Config, fs *pflag.FlagSet, opts *options) {
	if fs.Changed("days") {
		cfg.DefaultDays = opts.days
	}
	if fs.Changed("team-id") {
		cfg.TeamID = opts.teamID
	}
	if fs.Changed("cookie") {
		cfg.CookieString = opts.cookie
	}
	if fs.Changed("output-dir") {
		cfg.ReportsDir = opts.outputDir
	}
	if fs.Changed("source") {
		cfg.UsageSource = opts.source
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if opts.history && cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = config.DefaultHistoryDBPath()
	}
}

func configErr(err error) error {
	return &services.StageError{Stage: services.StageConfig, Err: err}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return defaultWidth
}

// printUsage prints the command-line usage information.
func printUsage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, `Cursor usage dashboard - team AI usage reports from the Cursor dashboard API

Usage:
  cud [flags]

Flags:
%s
Environment Variables:
  CURSOR_COOKIE_STRING     Session cookie copied from cursor.com (required)
  TEAM_ID                  Numeric Cursor team id (required)
  DEFAULT_DAYS             Days per report (default: 7)
  EXCLUDED_EMAILS          Comma-separated emails left out of every report
  GROUPS_FILE              YAML or TOML file with named groups
  REPORTS_DIR              Output directory (default: reports)
  EMAIL_MAPPING_PATH       Email to user id cache (default: email_mapping.json)
  USAGE_SOURCE             analytics or csv (default: analytics)
  HISTORY_DB_PATH          SQLite run history (default: disabled)
  HISTORY_RETENTION_DAYS   Drop recorded runs older than this (default: keep all)
  OBJECTSTORE_ENDPOINT     S3-compatible endpoint for uploading dashboards
  LOG_LEVEL, LOG_FILE      Logging (default: warn, stderr only)

Viewer keys (--tui):
  1-4, Tab/Shift+Tab       Switch tabs (Dashboard, Members, History, Info)
  r                        Regenerate the dashboard
  o                        Open the dashboard in a browser
  c                        Copy the dashboard path
  ?                        Toggle help
  q, Ctrl+C                Quit

Configuration:
  The application looks for .env files in the following locations:
  - Current directory
  - ~/.config/cursor-usage-dashboard/.env
  - Parent directories of the current directory
`, fs.FlagUsages())
}
