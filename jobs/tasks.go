package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeDispatchNotice delivers an operator-facing notice produced
	// at a finalization decision boundary.
	TaskTypeDispatchNotice = "notice:dispatch"
)

// DispatchNoticePayload describes one operator notice.
type DispatchNoticePayload struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// NewDispatchNoticeTask constructs an Asynq task.
func NewDispatchNoticeTask(payload DispatchNoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeDispatchNotice, data), nil
}

// NoticeDispatcher processes TaskTypeDispatchNotice tasks.
type NoticeDispatcher struct {
	logger *slog.Logger
}

// NewNoticeDispatcher constructs NoticeDispatcher.
func NewNoticeDispatcher(logger *slog.Logger) *NoticeDispatcher {
	return &NoticeDispatcher{logger: logger}
}

// Handle delivers the notice. Delivery today is the structured log; the
// payload shape is what downstream toast/webhook channels consume.
func (d *NoticeDispatcher) Handle(ctx context.Context, t *asynq.Task) error {
	var payload DispatchNoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	d.logger.InfoContext(ctx, "dispatch notice",
		slog.String("severity", payload.Severity),
		slog.String("message", payload.Message),
	)
	return nil
}
