package aggregate

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

var fortnight = models.DateRange{Start: models.NewDay(2026, 3, 1), End: models.NewDay(2026, 3, 14)}

func rec(email string, day int, lines, chats, tabs int64) models.UsageRecord {
	return models.UsageRecord{
		Email: email, Date: models.NewDay(2026, 3, day),
		LinesOfAgentCode: lines, ChatInteractions: chats, TabCompletions: tabs,
	}
}

func TestWeeks(t *testing.T) {
	cur, prev := Weeks(fortnight)
	assert.Equal(t, "2026-03-08", cur.Start.String())
	assert.Equal(t, "2026-03-14", cur.End.String())
	assert.Equal(t, "2026-03-01", prev.Start.String())
	assert.Equal(t, "2026-03-07", prev.End.String())

	week := models.DateRange{Start: models.NewDay(2026, 3, 8), End: models.NewDay(2026, 3, 14)}
	assert.Equal(t, fortnight, GrowthRange(week))
}

func TestSummarize_AliceAndBob(t *testing.T) {
	records := []models.UsageRecord{
		rec("alice@corp.com", 2, 60, 1, 0),
		rec("alice@corp.com", 5, 40, 0, 2),
		rec("alice@corp.com", 10, 150, 3, 1),
	}
	members := []string{"alice@corp.com", "bob@corp.com"}

	summaries := Summarize(records, members, fortnight)
	require.Len(t, summaries, 2)

	alice, bob := summaries[0], summaries[1]
	assert.Equal(t, int64(250), alice.TotalLines)
	assert.Equal(t, int64(100), alice.PreviousWeekLines)
	assert.Equal(t, int64(150), alice.CurrentWeekLines)
	require.NotNil(t, alice.GrowthPct)
	assert.Equal(t, 50.0, *alice.GrowthPct)
	assert.Equal(t, 3, alice.ActiveDays)
	assert.Equal(t, "Alice", alice.Name)

	assert.Nil(t, bob.GrowthPct, "growth is undefined when the previous week is zero")
	assert.Equal(t, 0.0, bob.GrowthOrZero())
	assert.Len(t, bob.Daily, 14, "absent members get a zero-filled series")
	assert.False(t, bob.HasActivity())

	ranked := RankByLines(summaries)
	assert.Equal(t, "alice@corp.com", ranked[0].Email)
	assert.Equal(t, "alice@corp.com", RankByGrowth(summaries)[0].Email)
}

func TestSummarize_IgnoresOutOfScopeRecords(t *testing.T) {
	week := models.DateRange{Start: models.NewDay(2026, 3, 8), End: models.NewDay(2026, 3, 14)}
	records := []models.UsageRecord{
		rec("alice@corp.com", 3, 80, 0, 0),    // before the range: growth only
		rec("alice@corp.com", 9, 120, 0, 0),   // in range
		rec("mallory@corp.com", 9, 999, 0, 0), // not a member
	}

	s := Summarize(records, []string{"alice@corp.com"}, week)
	require.Len(t, s, 1)
	assert.Equal(t, int64(120), s[0].TotalLines)
	assert.Equal(t, int64(80), s[0].PreviousWeekLines)
	require.NotNil(t, s[0].GrowthPct)
	assert.Equal(t, 50.0, *s[0].GrowthPct)
}

func TestGrowth(t *testing.T) {
	tests := []struct {
		name      string
		cur, prev int64
		want      *float64
	}{
		{"ZeroPrevious", 10, 0, nil},
		{"BothZero", 0, 0, nil},
		{"Up", 150, 100, ptr(50.0)},
		{"Down", 50, 100, ptr(-50.0)},
		{"Rounded", 2, 3, ptr(-33.3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Growth(tt.cur, tt.prev))
		})
	}
}

func TestRankByLines_TieBreaksByEmail(t *testing.T) {
	s := []models.UserSummary{
		{Email: "c@x.com", TotalLines: 5},
		{Email: "b@x.com", TotalLines: 10},
		{Email: "a@x.com", TotalLines: 5},
	}
	got := emails(RankByLines(s))
	assert.Equal(t, []string{"b@x.com", "a@x.com", "c@x.com"}, got)
	assert.Equal(t, "c@x.com", s[0].Email, "input is not reordered")
}

func TestRankByGrowth_UndefinedLast(t *testing.T) {
	s := []models.UserSummary{
		{Email: "a@x.com"},
		{Email: "b@x.com", GrowthPct: ptr(-10)},
		{Email: "c@x.com", GrowthPct: ptr(20)},
		{Email: "d@x.com", GrowthPct: ptr(20)},
	}
	assert.Equal(t, []string{"c@x.com", "d@x.com", "b@x.com", "a@x.com"}, emails(RankByGrowth(s)))
}

func TestRankByChats(t *testing.T) {
	s := []models.UserSummary{{Email: "a@x.com", TotalChats: 1}, {Email: "b@x.com", TotalChats: 3}}
	assert.Equal(t, []string{"b@x.com", "a@x.com"}, emails(RankByChats(s)))
}

// Sum of per-user lines equals the sum of in-scope record lines, and the
// lines ranking is a total order with an email tie-break.
func TestSummarize_Properties(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	pool := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com", "e@x.com"}

	for iter := 0; iter < 200; iter++ {
		members := pool[:1+r.IntN(len(pool)-1)]
		var records []models.UsageRecord
		var want int64
		for n := r.IntN(40); n > 0; n-- {
			email := pool[r.IntN(len(pool))]
			day := 1 + r.IntN(20)
			lines := int64(r.IntN(4)) * 50
			records = append(records, rec(email, day, lines, 0, 0))
			if fortnight.Contains(models.NewDay(2026, 3, day)) && contains(members, email) {
				want += lines
			}
		}

		summaries := Summarize(records, members, fortnight)
		require.Len(t, summaries, len(members))

		var got int64
		for _, s := range summaries {
			got += s.TotalLines
			if s.GrowthPct == nil {
				assert.Zero(t, s.PreviousWeekLines)
			}
		}
		assert.Equal(t, want, got)

		ranked := RankByLines(summaries)
		for i := 1; i < len(ranked); i++ {
			a, b := ranked[i-1], ranked[i]
			ok := a.TotalLines > b.TotalLines || (a.TotalLines == b.TotalLines && a.Email < b.Email)
			assert.True(t, ok, "ranking out of order at %d: %+v before %+v", i, a, b)
		}
	}
}

func ptr(v float64) *float64 { return &v }

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}
