package config

import "time"

const appDirName = "cursor-usage-dashboard"

// Default values
const (
	defaultDays                 = 7
	defaultReportsDir           = "reports"
	defaultEmailMappingPath     = "email_mapping.json"
	defaultAPIBaseURL           = "https://cursor.com"
	defaultAPITimeout           = 30 * time.Second
	defaultAPIMaxRetries        = 3
	defaultAPIRequestsPerSecond = 4.0
)
