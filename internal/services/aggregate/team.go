package aggregate

import (
	"sort"
	"time"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

// Persistence scoring parameters.
const (
	// ActiveDayLines is the minimum daily lines for a day to count as active.
	ActiveDayLines = 500
	// PersistenceTop is the size of the persistence leaderboard.
	PersistenceTop = 5
	// activityCap is the average daily activity that earns the full
	// activity-level share of the score.
	activityCap = 20.0
)

// TeamTotals sums the summaries and computes team-wide growth from the
// members' records.
func TeamTotals(summaries []models.UserSummary, records []models.UsageRecord, rng models.DateRange) models.Totals {
	t := models.Totals{Members: len(summaries)}
	inScope := make(map[string]struct{}, len(summaries))
	for i := range summaries {
		s := &summaries[i]
		inScope[s.Email] = struct{}{}
		t.Lines += s.TotalLines
		t.Chats += s.TotalChats
		t.Completions += s.TotalCompletions
		if s.HasActivity() {
			t.ActiveUsers++
		}
	}

	current, previous := Weeks(rng)
	var cur, prev models.DailyPoint
	for _, r := range records {
		if _, ok := inScope[r.Email]; !ok {
			continue
		}
		var p *models.DailyPoint
		switch {
		case current.Contains(r.Date):
			p = &cur
		case previous.Contains(r.Date):
			p = &prev
		default:
			continue
		}
		p.Lines += r.LinesOfAgentCode
		p.Chats += r.ChatInteractions
		p.Completions += r.TabCompletions
	}
	t.LinesGrowthPct = Growth(cur.Lines, prev.Lines)
	t.ChatsGrowthPct = Growth(cur.Chats, prev.Chats)
	t.CompletionsGrowthPct = Growth(cur.Completions, prev.Completions)
	return t
}

// TeamDaily returns the per-day team totals across the summaries.
func TeamDaily(summaries []models.UserSummary, rng models.DateRange) []models.DailyPoint {
	days := rng.Each()
	out := make([]models.DailyPoint, len(days))
	for i, d := range days {
		out[i].Date = d
	}
	for _, s := range summaries {
		for i, p := range s.Daily {
			if i >= len(out) {
				break
			}
			out[i].Lines += p.Lines
			out[i].Chats += p.Chats
			out[i].Completions += p.Completions
		}
	}
	return out
}

// Mix returns each activity kind's share of the grand total, in percent.
func Mix(t models.Totals) models.UsageMix {
	total := float64(t.Lines + t.Chats + t.Completions)
	if total == 0 {
		return models.UsageMix{}
	}
	return models.UsageMix{
		CompletionsPct: round1(float64(t.Completions) / total * 100),
		ChatsPct:       round1(float64(t.Chats) / total * 100),
		LinesPct:       round1(float64(t.Lines) / total * 100),
	}
}

// Persistence ranks active users by how steadily they used the tool and
// returns the top n. The score weighs the share of days with at least
// ActiveDayLines lines (40%), average daily activity capped at activityCap
// (30%) and the inverse variance of daily activity (30%). Daily activity is
// chats + completions + lines/100.
func Persistence(summaries []models.UserSummary, n int) []models.PersistenceEntry {
	var entries []models.PersistenceEntry
	for _, s := range summaries {
		if !s.HasActivity() || len(s.Daily) == 0 {
			continue
		}

		totalDays := len(s.Daily)
		activities := make([]float64, totalDays)
		var sum float64
		active := 0
		for i, p := range s.Daily {
			a := float64(p.Chats) + float64(p.Completions) + float64(p.Lines)/100
			activities[i] = a
			sum += a
			if p.Lines >= ActiveDayLines {
				active++
			}
		}

		ratio := float64(active) / float64(totalDays)
		avg := sum / float64(totalDays)
		consistency := consistencyScore(activities)
		score := (ratio*0.4 + min(avg/activityCap, 1)*0.3 + consistency*0.3) * 100

		entries = append(entries, models.PersistenceEntry{
			Email:         s.Email,
			Name:          s.Name,
			Score:         round1(score),
			ActiveDays:    active,
			TotalDays:     totalDays,
			AvgDaily:      round1(avg),
			ActivityRatio: round1(ratio * 100),
			Consistency:   round1(consistency * 100),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Email < entries[j].Email
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func consistencyScore(activities []float64) float64 {
	if len(activities) == 1 {
		if activities[0] > 0 {
			return 1
		}
		return 0
	}
	var mean float64
	for _, a := range activities {
		mean += a
	}
	mean /= float64(len(activities))

	var variance float64
	for _, a := range activities {
		variance += (a - mean) * (a - mean)
	}
	variance /= float64(len(activities))
	return 1 / (1 + variance)
}

// Build aggregates records into a complete report for the given members.
func Build(records []models.UsageRecord, members []string, group string, teamID int64,
	rng models.DateRange, generatedAt time.Time, id string,
) *models.Report {
	summaries := Summarize(records, members, rng)
	byLines := RankByLines(summaries)
	totals := TeamTotals(summaries, records, rng)

	return &models.Report{
		ID:          id,
		Group:       group,
		TeamID:      teamID,
		Range:       rng,
		GeneratedAt: generatedAt,
		Summaries:   byLines,
		Rankings: models.Rankings{
			ByLines:  emails(byLines),
			ByGrowth: emails(RankByGrowth(summaries)),
			ByChats:  emails(RankByChats(summaries)),
		},
		Totals:      totals,
		Daily:       TeamDaily(summaries, rng),
		Mix:         Mix(totals),
		Persistence: Persistence(byLines, PersistenceTop),
		Empty:       totals.ActiveUsers == 0,
	}
}
