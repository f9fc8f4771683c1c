// Package config contains everything related to configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Usage sources understood by the fetch stage.
const (
	SourceAnalytics = "analytics"
	SourceCSV       = "csv"
)

// Config holds the application configuration.
type Config struct {
	CookieString string
	TeamID       int64

	DefaultDays    int
	ExcludedEmails []string
	UsageSource    string

	ReportsDir       string
	GroupsFile       string
	EmailMappingPath string
	HistoryDBPath    string

	// HistoryRetentionDays drops recorded runs older than this many days.
	// Zero keeps every run.
	HistoryRetentionDays int

	APIBaseURL           string
	APITimeout           time.Duration
	APIMaxRetries        int
	APIRequestsPerSecond float64

	LogLevel string
	LogFile  string
	Notify   bool

	ObjectStore ObjectStoreConfig
}

// ObjectStoreConfig configures the optional S3-compatible upload of reports.
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// Enabled reports whether reports should be uploaded.
func (o ObjectStoreConfig) Enabled() bool {
	return o.Endpoint != "" && o.Bucket != ""
}

// Load reads configuration from .env files and environment variables.
// Required credentials are not checked here; call Validate once CLI
// overrides have been applied.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	envPaths := getEnvPaths()
	for _, path := range envPaths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	cfg := &Config{
		CookieString:         getEnvString("CURSOR_COOKIE_STRING", ""),
		DefaultDays:          getEnvInt("DEFAULT_DAYS", defaultDays),
		ExcludedEmails:       getEnvList("EXCLUDED_EMAILS"),
		UsageSource:          strings.ToLower(getEnvString("USAGE_SOURCE", SourceAnalytics)),
		ReportsDir:           getEnvString("REPORTS_DIR", defaultReportsDir),
		GroupsFile:           getEnvString("GROUPS_FILE", ""),
		EmailMappingPath:     getEnvString("EMAIL_MAPPING_PATH", defaultEmailMappingPath),
		HistoryDBPath:        getEnvString("HISTORY_DB_PATH", ""),
		HistoryRetentionDays: getEnvInt("HISTORY_RETENTION_DAYS", 0),
		APIBaseURL:           strings.TrimRight(getEnvString("API_BASE_URL", defaultAPIBaseURL), "/"),
		APITimeout:           getEnvDuration("API_TIMEOUT", defaultAPITimeout),
		APIMaxRetries:        getEnvInt("API_MAX_RETRIES", defaultAPIMaxRetries),
		APIRequestsPerSecond: getEnvFloat("API_REQUESTS_PER_SECOND", defaultAPIRequestsPerSecond),
		LogLevel:             getEnvString("LOG_LEVEL", "warn"),
		LogFile:              getEnvString("LOG_FILE", ""),
		Notify:               getEnvBool("NOTIFY", false),
		ObjectStore: ObjectStoreConfig{
			Endpoint:  getEnvString("OBJECTSTORE_ENDPOINT", ""),
			AccessKey: getEnvString("OBJECTSTORE_ACCESS_KEY", ""),
			SecretKey: getEnvString("OBJECTSTORE_SECRET_KEY", ""),
			Bucket:    getEnvString("OBJECTSTORE_BUCKET", ""),
			Prefix:    getEnvString("OBJECTSTORE_PREFIX", "cursor-reports"),
			UseSSL:    getEnvBool("OBJECTSTORE_USE_SSL", true),
		},
	}

	if raw := getEnvString("TEAM_ID", ""); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TEAM_ID must be numeric, got %q", raw)
		}
		cfg.TeamID = id
	}

	return cfg, nil
}

// Validate checks the values needed to talk to the API and write reports.
func (c *Config) Validate() error {
	var errs []error
	if c.CookieString == "" {
		errs = append(errs, errors.New("CURSOR_COOKIE_STRING is required (set via env, .env or --cookie)"))
	}
	if c.TeamID <= 0 {
		errs = append(errs, errors.New("TEAM_ID is required (set via env, .env or --team-id)"))
	}
	if c.DefaultDays < 1 {
		errs = append(errs, fmt.Errorf("DEFAULT_DAYS must be positive, got %d", c.DefaultDays))
	}
	if c.UsageSource != SourceAnalytics && c.UsageSource != SourceCSV {
		errs = append(errs, fmt.Errorf("USAGE_SOURCE must be %q or %q, got %q", SourceAnalytics, SourceCSV, c.UsageSource))
	}
	if c.HistoryRetentionDays < 0 {
		errs = append(errs, fmt.Errorf("HISTORY_RETENTION_DAYS must not be negative, got %d", c.HistoryRetentionDays))
	}
	if c.APIMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("API_MAX_RETRIES must not be negative, got %d", c.APIMaxRetries))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	// Ensure output directories exist
	if err := ensureDir(c.ReportsDir); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}
	if err := ensureDir(filepath.Dir(c.EmailMappingPath)); err != nil {
		return fmt.Errorf("failed to create mapping directory: %w", err)
	}
	return nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory location
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appDirName, ".env"))
	}

	// Parent directories (useful for development)
	if cwd, err := os.Getwd(); err == nil {
		parent := filepath.Dir(cwd)
		paths = append(paths, filepath.Join(parent, ".env"))
		grandparent := filepath.Dir(parent)
		paths = append(paths, filepath.Join(grandparent, ".env"))
	}

	return paths
}

// DefaultHistoryDBPath returns the conventional location of the history database.
func DefaultHistoryDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(home, ".config", appDirName, "history.db")
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns the default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool treats "true", "1" and "yes" as true.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}

// getEnvList splits a comma separated variable into lower-cased entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}
