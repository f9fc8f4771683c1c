// Package aggregate turns per-day usage records into summaries, rankings and
// team totals.
package aggregate

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

// weekDays is the length of the growth comparison windows.
const weekDays = 7

// Weeks returns the current week (the last seven days of rng) and the week
// before it.
func Weeks(rng models.DateRange) (current, previous models.DateRange) {
	current = models.DateRange{Start: rng.End.AddDays(-(weekDays - 1)), End: rng.End}
	previous = models.DateRange{Start: current.Start.AddDays(-weekDays), End: current.Start.AddDays(-1)}
	return current, previous
}

// GrowthRange is the span of records needed to compute growth for rng.
func GrowthRange(rng models.DateRange) models.DateRange {
	return rng.Extend(2 * weekDays)
}

// Summarize builds one summary per member, in member order. Members without
// records get zero-filled summaries. Records for other emails are ignored,
// and records outside rng only count towards week-over-week growth.
func Summarize(records []models.UsageRecord, members []string, rng models.DateRange) []models.UserSummary {
	days := rng.Each()
	dayIndex := make(map[models.Day]int, len(days))
	for i, d := range days {
		dayIndex[d] = i
	}
	current, previous := Weeks(rng)

	summaries := make([]models.UserSummary, len(members))
	byEmail := make(map[string]*models.UserSummary, len(members))
	for i, email := range members {
		s := &summaries[i]
		s.Email = email
		s.Name = models.DisplayName(email)
		s.Daily = make([]models.DailyPoint, len(days))
		for j, d := range days {
			s.Daily[j].Date = d
		}
		byEmail[email] = s
	}

	for _, r := range records {
		s, ok := byEmail[r.Email]
		if !ok {
			continue
		}
		switch {
		case current.Contains(r.Date):
			s.CurrentWeekLines += r.LinesOfAgentCode
		case previous.Contains(r.Date):
			s.PreviousWeekLines += r.LinesOfAgentCode
		}

		i, ok := dayIndex[r.Date]
		if !ok {
			continue
		}
		p := &s.Daily[i]
		p.Lines += r.LinesOfAgentCode
		p.Chats += r.ChatInteractions
		p.Completions += r.TabCompletions
		s.TotalLines += r.LinesOfAgentCode
		s.TotalChats += r.ChatInteractions
		s.TotalCompletions += r.TabCompletions
	}

	for i := range summaries {
		s := &summaries[i]
		s.ActiveDays = lo.CountBy(s.Daily, func(p models.DailyPoint) bool {
			return p.Lines > 0 || p.Chats > 0 || p.Completions > 0
		})
		s.GrowthPct = Growth(s.CurrentWeekLines, s.PreviousWeekLines)
	}
	return summaries
}

// Growth returns the percentage change from prev to cur, rounded to one
// decimal. It is nil when prev is zero.
func Growth(cur, prev int64) *float64 {
	if prev == 0 {
		return nil
	}
	g := round1(float64(cur-prev) / float64(prev) * 100)
	return &g
}

// RankByLines orders summaries by total lines, highest first, breaking ties
// by email.
func RankByLines(summaries []models.UserSummary) []models.UserSummary {
	return rank(summaries, func(a, b *models.UserSummary) int {
		return cmpDesc(a.TotalLines, b.TotalLines)
	})
}

// RankByChats orders summaries by chat interactions, highest first,
// breaking ties by email.
func RankByChats(summaries []models.UserSummary) []models.UserSummary {
	return rank(summaries, func(a, b *models.UserSummary) int {
		return cmpDesc(a.TotalChats, b.TotalChats)
	})
}

// RankByGrowth orders summaries by growth, highest first. Users with
// undefined growth come last. Ties break by email.
func RankByGrowth(summaries []models.UserSummary) []models.UserSummary {
	return rank(summaries, func(a, b *models.UserSummary) int {
		switch {
		case a.GrowthPct == nil && b.GrowthPct == nil:
			return 0
		case a.GrowthPct == nil:
			return 1
		case b.GrowthPct == nil:
			return -1
		}
		return cmpDesc(*a.GrowthPct, *b.GrowthPct)
	})
}

func rank(summaries []models.UserSummary, cmp func(a, b *models.UserSummary) int) []models.UserSummary {
	out := append([]models.UserSummary(nil), summaries...)
	sort.SliceStable(out, func(i, j int) bool {
		if c := cmp(&out[i], &out[j]); c != 0 {
			return c < 0
		}
		return out[i].Email < out[j].Email
	})
	return out
}

func cmpDesc[T int64 | float64](a, b T) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

func emails(summaries []models.UserSummary) []string {
	return lo.Map(summaries, func(s models.UserSummary, _ int) string { return s.Email })
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
