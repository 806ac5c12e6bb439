package notify

import (
	"context"
	"log/slog"
)

// Severity classifies operator-facing notices.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notifier is the user-facing feedback channel. The finalization engine
// calls it only at decision boundaries: validation failure, submission
// success or failure, and data-integrity warnings.
type Notifier interface {
	Notify(ctx context.Context, severity Severity, message string)
}

// LogNotifier writes notices to the structured log. It is the default sink
// when no delivery channel is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, severity Severity, message string) {
	if n == nil || n.logger == nil {
		return
	}
	switch severity {
	case SeverityError:
		n.logger.ErrorContext(ctx, message, slog.String("channel", "notice"))
	case SeverityWarning:
		n.logger.WarnContext(ctx, message, slog.String("channel", "notice"))
	default:
		n.logger.InfoContext(ctx, message, slog.String("channel", "notice"))
	}
}
