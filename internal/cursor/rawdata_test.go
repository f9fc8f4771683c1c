package cursor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

const rawCSV = "\ufeffDate,Email,User ID,Chat Suggested Lines Added,Chat Suggested Lines Deleted,Chat Accepted Lines Added,Chat Accepted Lines Deleted,Chat Total Applies,Tabs Accepted,Ask Requests,Agent Requests\n" +
	"2026-01-01,Alice@corp.com,11,100,20,50,10,3,9,2,1\n" +
	"2026-01-01T00:00:00.000Z,alice@corp.com,11,5,,0,0,,1,,\n" +
	"2026-01-02,bob@corp.com,12,0,0,0,0,0,4,0,0\n" +
	"2025-12-20,bob@corp.com,12,999,0,0,0,0,0,0,0\n" +
	",,,,,,,,,,\n"

func TestParseRawUsage(t *testing.T) {
	rng := models.DateRange{Start: models.NewDay(2026, 1, 1), End: models.NewDay(2026, 1, 7)}

	recs, err := parseRawUsage([]byte(rawCSV), rng)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, models.UsageRecord{
		Email: "alice@corp.com", UserID: 11, Date: models.NewDay(2026, 1, 1),
		LinesOfAgentCode: 125, ChatInteractions: 6, TabCompletions: 10,
	}, recs[0])
	assert.Equal(t, "bob@corp.com", recs[1].Email)
	assert.Equal(t, int64(4), recs[1].TabCompletions)
}

func TestParseRawUsage_Errors(t *testing.T) {
	rng := models.LastNDays(models.NewDay(2026, 1, 7).Time(), 7)

	tests := []struct {
		name string
		body string
	}{
		{"MissingEmailColumn", "Date,User ID\n2026-01-01,1\n"},
		{"BadDate", "Date,Email\nyesterday,a@x.com\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRawUsage([]byte(tt.body), rng)
			var de *DecodeError
			assert.ErrorAs(t, err, &de)
		})
	}

	recs, err := parseRawUsage(nil, rng)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestFetchTeamRawUsage(t *testing.T) {
	rng := models.DateRange{Start: models.NewDay(2026, 1, 1), End: models.NewDay(2026, 1, 7)}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/dashboard/get-team-raw-data", r.URL.Path)
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		body, _ := io.ReadAll(r.Body)
		start := gjson.GetBytes(body, "startDate")
		assert.Equal(t, gjson.Number, start.Type)
		assert.Equal(t, rng.Start.Time().UnixMilli(), start.Int())
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(rawCSV))
	}))
	defer srv.Close()

	recs, err := newTestClient(t, srv.URL, 0).FetchTeamRawUsage(context.Background(), 5, rng)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestParseCookies(t *testing.T) {
	cookies, err := ParseCookies(" session=a%3Ab+c ; theme=dark;broken; =x")
	require.NoError(t, err)
	require.Len(t, cookies, 2)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "a:b c", cookies[0].Value)
	assert.Equal(t, "theme", cookies[1].Name)

	_, err = ParseCookies("")
	assert.ErrorIs(t, err, ErrEmptyCookie)
}

func TestCookieHeader(t *testing.T) {
	assert.Equal(t, "a=1; b=x%3Ay", cookieHeader(" a=1 ;junk; b=x%3Ay ;"))
}

// Epoch dates must land on their UTC day even when the local zone is behind
// UTC, where the same instant is still the previous evening.
func TestEpochDatesUseUTCDay(t *testing.T) {
	orig := time.Local
	time.Local = time.FixedZone("PST", -8*60*60)
	t.Cleanup(func() { time.Local = orig })

	ms := models.NewDay(2026, 1, 3).Time().UnixMilli()

	day, err := parseRawDate(strconv.FormatInt(ms, 10))
	require.NoError(t, err)
	assert.Equal(t, models.NewDay(2026, 1, 3), day)

	rng := models.DateRange{Start: models.NewDay(2026, 1, 1), End: models.NewDay(2026, 1, 7)}
	body := []byte(`{"dailyMetrics":[{"date":"` + strconv.FormatInt(ms, 10) + `","acceptedLinesAdded":7}]}`)
	recs, err := parseUserAnalytics(body, 11, "alice@corp.com", rng)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, models.NewDay(2026, 1, 3), recs[0].Date)
}
