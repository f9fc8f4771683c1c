package models

import "time"

// RunRecord is one generated report kept in the history store.
type RunRecord struct {
	ID          string
	Group       string
	TeamID      int64
	RangeStart  Day
	RangeEnd    Day
	GeneratedAt time.Time
	Members     int
	ActiveUsers int
	Lines       int64
	Chats       int64
	Completions int64
	OutputPath  string
}

// HistoryTrend is the per-run series of a group's totals, oldest first.
type HistoryTrend struct {
	Group string
	Runs  []RunRecord
}

// HasData reports whether any run was recorded.
func (h *HistoryTrend) HasData() bool {
	return len(h.Runs) > 0
}

// Lines returns the line totals of every run as floats, for charting.
func (h *HistoryTrend) Lines() []float64 {
	out := make([]float64, len(h.Runs))
	for i, r := range h.Runs {
		out[i] = float64(r.Lines)
	}
	return out
}

// Latest returns the most recent run.
func (h *HistoryTrend) Latest() (RunRecord, bool) {
	if len(h.Runs) == 0 {
		return RunRecord{}, false
	}
	return h.Runs[len(h.Runs)-1], true
}
