package notify

import (
	"context"
	"log/slog"

	"github.com/bindalkapil/FxDPartnerERP-sub002/jobs"
)

// QueueNotifier hands notices to the background job queue for delivery.
// Enqueue failures fall back to the structured log so a notice is never
// silently lost.
type QueueNotifier struct {
	client *jobs.Client
	logger *slog.Logger
}

// NewQueueNotifier constructs QueueNotifier.
func NewQueueNotifier(client *jobs.Client, logger *slog.Logger) *QueueNotifier {
	return &QueueNotifier{client: client, logger: logger}
}

func (n *QueueNotifier) Notify(ctx context.Context, severity Severity, message string) {
	payload := jobs.DispatchNoticePayload{
		Severity: string(severity),
		Message:  message,
	}
	if _, err := n.client.EnqueueDispatchNotice(ctx, payload); err != nil {
		n.logger.WarnContext(ctx, "enqueue notice",
			slog.Any("error", err),
			slog.String("severity", string(severity)),
			slog.String("message", message),
		)
	}
}
