package cursor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/sjson"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
)

// Raw data export columns.
const (
	colDate           = "Date"
	colEmail          = "Email"
	colUserID         = "User ID"
	colSuggestedAdded = "Chat Suggested Lines Added"
	colSuggestedDel   = "Chat Suggested Lines Deleted"
	colTotalApplies   = "Chat Total Applies"
	colAskRequests    = "Ask Requests"
	colAgentRequests  = "Agent Requests"
	colTabsAccepted   = "Tabs Accepted"
)

// FetchTeamRawUsage downloads the team's raw usage export for rng in a
// single request.
func (c *Client) FetchTeamRawUsage(ctx context.Context, teamID int64, rng models.DateRange) ([]models.UsageRecord, error) {
	start, end := rangeMillis(rng)
	payload, err := sjson.SetBytes([]byte(`{}`), "teamId", teamID)
	if err == nil {
		payload, err = sjson.SetBytes(payload, "startDate", start)
	}
	if err == nil {
		payload, err = sjson.SetBytes(payload, "endDate", end)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to build raw data payload: %w", err)
	}

	body, err := c.post(ctx, endpointTeamRawData, payload)
	if err != nil {
		return nil, err
	}
	return parseRawUsage(body, rng)
}

func parseRawUsage(body []byte, rng models.DateRange) ([]models.UsageRecord, error) {
	r := csv.NewReader(bytes.NewReader(body))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, &DecodeError{Endpoint: endpointTeamRawData, Err: err}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, required := range []string{colDate, colEmail} {
		if _, ok := cols[required]; !ok {
			return nil, &DecodeError{Endpoint: endpointTeamRawData, Err: fmt.Errorf("missing column %q", required)}
		}
	}

	field := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(row []string, name string) int64 {
		v := field(row, name)
		if v == "" {
			return 0
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return int64(f)
	}

	type key struct {
		email string
		day   models.Day
	}
	byKey := make(map[key]*models.UsageRecord)

	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &DecodeError{Endpoint: endpointTeamRawData, Err: fmt.Errorf("line %d: %w", line, err)}
		}

		email := models.NormalizeEmail(field(row, colEmail))
		if email == "" {
			continue
		}
		day, err := parseRawDate(field(row, colDate))
		if err != nil {
			return nil, &DecodeError{Endpoint: endpointTeamRawData, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		if !rng.Contains(day) {
			continue
		}

		k := key{email: email, day: day}
		rec, ok := byKey[k]
		if !ok {
			rec = &models.UsageRecord{Email: email, UserID: num(row, colUserID), Date: day}
			byKey[k] = rec
		}
		rec.LinesOfAgentCode += num(row, colSuggestedAdded) + num(row, colSuggestedDel)
		rec.ChatInteractions += num(row, colTotalApplies) + num(row, colAskRequests) + num(row, colAgentRequests)
		rec.TabCompletions += num(row, colTabsAccepted)
	}

	return sortedRecords(byKey), nil
}

var rawDateLayouts = []string{
	models.DayLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseRawDate(v string) (models.Day, error) {
	for _, layout := range rawDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return models.DayOf(t), nil
		}
	}
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
		// Epoch dates are UTC midnights; bucket by the UTC date.
		return models.DayOf(time.UnixMilli(ms).UTC()), nil
	}
	return models.Day{}, fmt.Errorf("unrecognized date %q", v)
}
