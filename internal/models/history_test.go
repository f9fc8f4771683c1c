package models

import (
	"testing"
	"time"
)

func TestHistoryTrend(t *testing.T) {
	var empty HistoryTrend
	if empty.HasData() {
		t.Error("empty trend should have no data")
	}
	if _, ok := empty.Latest(); ok {
		t.Error("Latest() on empty trend should report false")
	}

	trend := HistoryTrend{
		Group: "all",
		Runs: []RunRecord{
			{ID: "a", Lines: 10, GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: "b", Lines: 25, GeneratedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)},
		},
	}
	if !trend.HasData() {
		t.Fatal("trend should have data")
	}
	lines := trend.Lines()
	if len(lines) != 2 || lines[0] != 10 || lines[1] != 25 {
		t.Errorf("Lines() = %v, want [10 25]", lines)
	}
	latest, ok := trend.Latest()
	if !ok || latest.ID != "b" {
		t.Errorf("Latest() = %v, %v, want run b", latest.ID, ok)
	}
}
