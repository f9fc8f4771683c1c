package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/cursor-usage-dashboard/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second
)

// Runner generates reports. *services.Manager satisfies it.
type Runner interface {
	Run(ctx context.Context, req services.Request) (*services.Result, error)
}

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// generateCmd runs the pipeline and forwards stage changes on stages,
// which it closes when the run ends.
func generateCmd(ctx context.Context, runner Runner, req services.Request, stages chan<- string) tea.Cmd {
	return func() tea.Msg {
		defer close(stages)
		req.OnStage = func(s services.Stage) {
			select {
			case stages <- string(s):
			default:
			}
		}
		res, err := runner.Run(ctx, req)
		return ReportLoadedMsg{Result: res, Err: err}
	}
}

// waitForStageCmd returns a command that waits for the next stage change.
func waitForStageCmd(stages <-chan string) tea.Cmd {
	return func() tea.Msg {
		stage, ok := <-stages
		if !ok {
			return nil
		}
		return StageMsg{Stage: stage}
	}
}

// openCmd opens path with the platform's default handler.
func openCmd(open func(string) error, path string) tea.Cmd {
	return func() tea.Msg {
		return OpenResultMsg{Path: path, Error: open(path)}
	}
}

// copyCmd writes text to the system clipboard.
func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return CopyResultMsg{Text: text, Error: write(text)}
	}
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, DefaultNotificationDuration)
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}
