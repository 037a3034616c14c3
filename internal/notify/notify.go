// Package notify delivers reminder notifications outside the process.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Notification struct {
	ReminderID string
	Title      string
	Body       string
	At         time.Time
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

type Noop struct{}

func (Noop) Send(context.Context, Notification) error { return nil }

// Desktop shells out to notify-send on Linux and osascript on macOS. Other
// platforms are silently skipped.
type Desktop struct{}

func (Desktop) Send(ctx context.Context, n Notification) error {
	name, args, ok := desktopCommand(runtime.GOOS, n)
	if !ok {
		return nil
	}
	if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
		return fmt.Errorf("notify: %s: %w", name, err)
	}
	return nil
}

func desktopCommand(goos string, n Notification) (string, []string, bool) {
	switch goos {
	case "linux":
		return "notify-send", []string{"--app-name=plannerd", n.Title, n.Body}, true
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return "osascript", []string{"-e", script}, true
	default:
		return "", nil, false
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// Log records each notification as a structured log entry.
type Log struct {
	Logger *zap.Logger
}

func (l Log) Send(_ context.Context, n Notification) error {
	if l.Logger == nil {
		return nil
	}
	l.Logger.Info("reminder notification",
		zap.String("reminder_id", n.ReminderID),
		zap.String("title", n.Title),
		zap.Time("at", n.At))
	return nil
}

// Multi sends to every notifier and joins the failures.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, n Notification) error {
	var result error
	for _, target := range m {
		if target == nil {
			continue
		}
		if err := target.Send(ctx, n); err != nil {
			result = errors.Join(result, err)
		}
	}
	return result
}
