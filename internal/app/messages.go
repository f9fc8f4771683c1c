package app

import (
	"time"

	"github.com/j-veylop/cursor-usage-dashboard/internal/services"
)

// TickMsg is sent periodically to expire notifications.
type TickMsg struct {
	Time time.Time
}

// StageMsg reports that the running pipeline entered a new stage.
type StageMsg struct {
	Stage string
}

// ReportLoadedMsg carries the outcome of a pipeline run. Every tab receives
// it, not only the active one.
type ReportLoadedMsg struct {
	Result *services.Result
	Err    error
}

// RefreshMsg requests a new pipeline run.
type RefreshMsg struct{}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}

// OpenResultMsg contains the result of opening the dashboard in a browser.
type OpenResultMsg struct {
	Path  string
	Error error
}

// CopyResultMsg contains the result of a clipboard operation.
type CopyResultMsg struct {
	Text  string
	Error error
}
