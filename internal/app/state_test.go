package app

import (
	"errors"
	"testing"
	"time"

	"github.com/j-veylop/cursor-usage-dashboard/internal/models"
	"github.com/j-veylop/cursor-usage-dashboard/internal/services"
)

func TestNewState(t *testing.T) {
	s := NewState()
	if !s.IsLoading() {
		t.Error("a new state should be loading")
	}
	if s.Result() != nil || s.Report() != nil {
		t.Error("a new state should have no result")
	}
}

func TestState_Stage(t *testing.T) {
	s := NewState()
	s.SetStage("fetch")
	if got := s.Stage(); got != "fetch" {
		t.Errorf("Stage() = %q, want fetch", got)
	}
	s.SetLoading(false)
	if got := s.Stage(); got != "" {
		t.Errorf("Stage() after finishing = %q, want empty", got)
	}
}

func TestState_SetResult(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s := NewState()
	s.now = func() time.Time { return now }

	first := &services.Result{Report: &models.Report{Group: "backend"}, OutputPath: "a.html"}
	s.SetResult(first, nil)
	if s.IsLoading() {
		t.Error("SetResult should stop loading")
	}
	if s.Report().Group != "backend" {
		t.Errorf("Report().Group = %q", s.Report().Group)
	}
	if !s.LastUpdated().Equal(now) {
		t.Errorf("LastUpdated() = %v, want %v", s.LastUpdated(), now)
	}

	boom := errors.New("boom")
	s.SetLoading(true)
	s.SetResult(nil, boom)
	if s.Result() != first {
		t.Error("a failed run should keep the previous result")
	}
	if !errors.Is(s.Err(), boom) {
		t.Errorf("Err() = %v, want %v", s.Err(), boom)
	}
}

func TestState_Notifications(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	s := NewState()
	s.now = func() time.Time { return now }

	keep := s.AddNotification(NotificationInfo, "sticky", 0)
	s.AddNotification(NotificationError, "short", time.Second)
	if n := len(s.Notifications()); n != 2 {
		t.Fatalf("got %d notifications, want 2", n)
	}

	now = now.Add(2 * time.Second)
	s.ClearExpiredNotifications()
	got := s.Notifications()
	if len(got) != 1 || got[0].ID != keep {
		t.Fatalf("after expiry got %+v, want only %s", got, keep)
	}

	s.RemoveNotification(keep)
	if n := len(s.Notifications()); n != 0 {
		t.Errorf("got %d notifications after removal, want 0", n)
	}
}

func TestState_NotificationCap(t *testing.T) {
	s := NewState()
	for range maxNotifications + 3 {
		s.AddNotification(NotificationInfo, "x", 0)
	}
	if n := len(s.Notifications()); n != maxNotifications {
		t.Errorf("got %d notifications, want %d", n, maxNotifications)
	}
}

func TestNotificationType_String(t *testing.T) {
	tests := []struct {
		typ  NotificationType
		want string
	}{
		{NotificationSuccess, "success"},
		{NotificationError, "error"},
		{NotificationWarning, "warning"},
		{NotificationInfo, "info"},
		{NotificationType(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
