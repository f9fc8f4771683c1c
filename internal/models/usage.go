package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Member is a team member as reported by the dashboard API.
type Member struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// UsageRecord is one user's usage for one day.
type UsageRecord struct {
	Email            string `json:"email"`
	UserID           int64  `json:"userId,omitempty"`
	Date             Day    `json:"date"`
	LinesOfAgentCode int64  `json:"linesOfAgentCode"`
	ChatInteractions int64  `json:"chatInteractions"`
	TabCompletions   int64  `json:"tabCompletions"`
}

// IsZero reports whether the record carries no activity.
func (r UsageRecord) IsZero() bool {
	return r.LinesOfAgentCode == 0 && r.ChatInteractions == 0 && r.TabCompletions == 0
}

// DailyPoint is the usage of a user (or the whole team) on one day.
type DailyPoint struct {
	Date        Day   `json:"date"`
	Lines       int64 `json:"lines"`
	Chats       int64 `json:"chats"`
	Completions int64 `json:"completions"`
}

// UserSummary holds per-user totals over a report range.
type UserSummary struct {
	Email             string       `json:"email"`
	Name              string       `json:"name"`
	TotalLines        int64        `json:"totalLines"`
	TotalChats        int64        `json:"totalChats"`
	TotalCompletions  int64        `json:"totalCompletions"`
	ActiveDays        int          `json:"activeDays"`
	Daily             []DailyPoint `json:"daily"`
	CurrentWeekLines  int64        `json:"currentWeekLines"`
	PreviousWeekLines int64        `json:"previousWeekLines"`
	// GrowthPct is nil when the previous week had no lines.
	GrowthPct *float64 `json:"growthPct"`
}

// HasActivity reports whether the user did anything in the range.
func (s *UserSummary) HasActivity() bool {
	return s.TotalLines > 0 || s.TotalChats > 0 || s.TotalCompletions > 0
}

// GrowthOrZero returns the growth percentage, treating undefined growth as 0.
func (s *UserSummary) GrowthOrZero() float64 {
	if s.GrowthPct == nil {
		return 0
	}
	return *s.GrowthPct
}

// DisplayName derives a readable name from an email address:
// "jane.doe@corp.com" becomes "Jane Doe".
func DisplayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-'
	})
	for i, p := range parts {
		r, size := utf8.DecodeRuneInString(p)
		parts[i] = string(unicode.ToUpper(r)) + strings.ToLower(p[size:])
	}
	if len(parts) == 0 {
		return email
	}
	return strings.Join(parts, " ")
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
