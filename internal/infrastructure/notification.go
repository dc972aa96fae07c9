package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/videold-go/internal/domain"
	"go.uber.org/zap"
)

const (
	NotifyMethodLog        = "log"
	NotifyMethodOSAScript  = "osascript"
	NotifyMethodNotifySend = "notify-send"
)

// commandRunner runs an external notifier binary
type commandRunner func(name string, args ...string) error

func runCommand(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

// NotificationService surfaces user-visible notices
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    commandRunner
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		config: config,
		logger: logger,
		run:    runCommand,
	}
}

// Notify sends a notice through the configured method
func (n *NotificationService) Notify(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var err error
	switch n.config.Method {
	case NotifyMethodLog, "":
		n.logger.Info(message, zap.String("title", title))
		return nil
	case NotifyMethodOSAScript:
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(message), appleScriptString(title))
		err = n.run("osascript", "-e", script)
	case NotifyMethodNotifySend:
		err = n.run("notify-send", title, message)
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

// NotifyTransferCompleted announces a saved single item, member, or archive
func (n *NotificationService) NotifyTransferCompleted(session *domain.TransferSession) {
	title := "Download Completed"
	if session.IsBatch {
		title = "Archive Completed"
	}
	n.Notify(title, fmt.Sprintf("Saved: %s", truncateString(session.Filename, 40)))
}

// NotifyTransferFailed announces a failed transfer with its user-visible message
func (n *NotificationService) NotifyTransferFailed(session *domain.TransferSession) {
	title := "Download Failed"
	if session.IsBatch {
		title = "Archive Failed"
	}
	n.Notify(title, session.ErrorMessage)
}

// NotifyError announces a failure that has no session, such as a fetch or selection guard
func (n *NotificationService) NotifyError(err error) {
	n.Notify("VideoLD", domain.UserMessage(err))
}

// appleScriptString quotes s as an AppleScript string literal
func appleScriptString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(c)
		case '\n', '\r':
			b.WriteByte(' ')
		default:
			b.WriteRune(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
