package cursor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/j-veylop/cursor-usage-dashboard/internal/logger"
	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

// FetchUserUsage returns one record per day with data for a single user.
// Days outside rng are dropped.
func (c *Client) FetchUserUsage(ctx context.Context, teamID, userID int64, email string, rng models.DateRange) ([]models.UsageRecord, error) {
	start, end := rangeMillis(rng)
	payload := []byte(`{}`)
	var err error
	for _, kv := range []struct {
		path  string
		value any
	}{
		{"teamId", teamID},
		{"userId", userID},
		{"startDate", strconv.FormatInt(start, 10)},
		{"endDate", strconv.FormatInt(end, 10)},
	} {
		if payload, err = sjson.SetBytes(payload, kv.path, kv.value); err != nil {
			return nil, fmt.Errorf("failed to build analytics payload: %w", err)
		}
	}

	body, err := c.post(ctx, endpointUserAnalytics, payload)
	if err != nil {
		return nil, err
	}
	return parseUserAnalytics(body, userID, email, rng)
}

// FetchTeamUsage fetches analytics for each member in turn. Members without
// a user id cannot be queried and are skipped with a warning.
func (c *Client) FetchTeamUsage(ctx context.Context, teamID int64, members []models.Member, rng models.DateRange) ([]models.UsageRecord, error) {
	var records []models.UsageRecord
	for i, m := range members {
		if m.UserID == 0 {
			logger.Warn("Skipping member without user id", "email", m.Email)
			continue
		}
		recs, err := c.FetchUserUsage(ctx, teamID, m.UserID, m.Email, rng)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch usage for %s: %w", m.Email, err)
		}
		logger.Debug("Fetched user usage", "email", m.Email, "days", len(recs),
			"progress", fmt.Sprintf("%d/%d", i+1, len(members)))
		records = append(records, recs...)
	}
	return records, nil
}

func parseUserAnalytics(body []byte, userID int64, email string, rng models.DateRange) ([]models.UsageRecord, error) {
	if !gjson.ValidBytes(body) {
		return nil, &DecodeError{Endpoint: endpointUserAnalytics, Err: errors.New("invalid JSON")}
	}
	metrics := gjson.GetBytes(body, "dailyMetrics")
	if !metrics.Exists() {
		// Users with no activity come back without the array.
		return nil, nil
	}
	if !metrics.IsArray() {
		return nil, &DecodeError{Endpoint: endpointUserAnalytics, Err: errors.New("dailyMetrics is not an array")}
	}

	email = models.NormalizeEmail(email)
	byDay := make(map[models.Day]*models.UsageRecord)
	for _, m := range metrics.Array() {
		ms := m.Get("date").Int()
		if ms == 0 {
			continue
		}
		// The API reports each day as its UTC midnight, so the UTC date is the day.
		day := models.DayOf(time.UnixMilli(ms).UTC())
		if !rng.Contains(day) {
			continue
		}

		rec, ok := byDay[day]
		if !ok {
			rec = &models.UsageRecord{Email: email, UserID: userID, Date: day}
			byDay[day] = rec
		}
		rec.LinesOfAgentCode += m.Get("acceptedLinesAdded").Int() + m.Get("acceptedLinesDeleted").Int() +
			m.Get("linesAdded").Int() + m.Get("linesDeleted").Int()
		rec.ChatInteractions += m.Get("agentRequests").Int() + m.Get("composerRequests").Int()
		rec.TabCompletions += m.Get("totalTabsAccepted").Int()
	}

	return sortedRecords(byDay), nil
}

// rangeMillis returns the epoch-millisecond bounds covering every day of rng.
func rangeMillis(rng models.DateRange) (start, end int64) {
	return rng.Start.Time().UnixMilli(), rng.End.AddDays(1).Time().UnixMilli() - 1
}

func sortedRecords[K comparable](m map[K]*models.UsageRecord) []models.UsageRecord {
	out := make([]models.UsageRecord, 0, len(m))
	for _, r := range m {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Email < out[j].Email
	})
	return out
}
