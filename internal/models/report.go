package models

import "time"

// AllGroup is the pseudo-group covering every team member.
const AllGroup = "all"

// Group is a named cohort of member emails.
type Group struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" toml:"description"`
	Members     []string `json:"members" yaml:"members" toml:"members"`
}

// Totals are team-wide sums over the report range.
type Totals struct {
	Lines       int64 `json:"lines"`
	Chats       int64 `json:"chats"`
	Completions int64 `json:"completions"`
	ActiveUsers int   `json:"activeUsers"`
	Members     int   `json:"members"`

	LinesGrowthPct       *float64 `json:"linesGrowthPct"`
	ChatsGrowthPct       *float64 `json:"chatsGrowthPct"`
	CompletionsGrowthPct *float64 `json:"completionsGrowthPct"`
}

// UsageMix is the share, in percent, of each activity kind in the grand total.
type UsageMix struct {
	CompletionsPct float64 `json:"completionsPct"`
	ChatsPct       float64 `json:"chatsPct"`
	LinesPct       float64 `json:"linesPct"`
}

// PersistenceEntry ranks a user by how steadily they used the tool.
type PersistenceEntry struct {
	Email         string  `json:"email"`
	Name          string  `json:"name"`
	Score         float64 `json:"score"`
	ActiveDays    int     `json:"activeDays"`
	TotalDays     int     `json:"totalDays"`
	AvgDaily      float64 `json:"avgDaily"`
	ActivityRatio float64 `json:"activityRatio"`
	Consistency   float64 `json:"consistency"`
}

// Rankings are orderings of a report's summaries.
type Rankings struct {
	ByLines  []string `json:"byLines"`
	ByGrowth []string `json:"byGrowth"`
	ByChats  []string `json:"byChats"`
}

// Report is the aggregated result of one run, ready for rendering.
type Report struct {
	ID          string    `json:"id"`
	Group       string    `json:"group"`
	TeamID      int64     `json:"teamId"`
	Range       DateRange `json:"range"`
	GeneratedAt time.Time `json:"generatedAt"`

	// Summaries are ordered by lines ranking.
	Summaries   []UserSummary      `json:"summaries"`
	Rankings    Rankings           `json:"rankings"`
	Totals      Totals             `json:"totals"`
	Daily       []DailyPoint       `json:"daily"`
	Mix         UsageMix           `json:"mix"`
	Persistence []PersistenceEntry `json:"persistence"`

	// Empty is set when no member has any activity in the range.
	Empty bool `json:"empty"`
}

// Summary returns the summary for email, if present.
func (r *Report) Summary(email string) (*UserSummary, bool) {
	for i := range r.Summaries {
		if r.Summaries[i].Email == email {
			return &r.Summaries[i], true
		}
	}
	return nil, false
}
