// Package notification moves lifecycle events from the core to mail and
// chat. The core only sees Dispatcher; delivery happens in Worker, in a
// separate process.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vulntrack/internal/domain/notification"
	"vulntrack/internal/shared/biztime"
	"vulntrack/internal/shared/goroutine"
	"vulntrack/internal/shared/logger"
)

const defaultEnqueueTimeout = 5 * time.Second

var _ notification.Notifier = (*Dispatcher)(nil)

// Dispatcher queues notifications in the background. Notify returns
// immediately and never fails; enqueue errors are logged.
type Dispatcher struct {
	queue   notification.Queue
	timeout time.Duration
	logger  logger.Interface
	now     func() time.Time
}

func NewDispatcher(queue notification.Queue, enqueueTimeout time.Duration, log logger.Interface) *Dispatcher {
	if enqueueTimeout <= 0 {
		enqueueTimeout = defaultEnqueueTimeout
	}
	return &Dispatcher{
		queue:   queue,
		timeout: enqueueTimeout,
		logger:  log,
		now:     biztime.NowUTC,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, kind notification.Kind, selector notification.Selector, payload notification.Payload) {
	task, err := notification.NewTask(uuid.NewString(), kind, selector, payload, d.now())
	if err != nil {
		d.logger.Errorw("dropping notification", "kind", kind, "group", selector.Group, "error", err)
		return
	}

	goroutine.SafeGoDetached(ctx, d.logger, "notification-enqueue", d.timeout, func(ctx context.Context) {
		if err := d.queue.Enqueue(ctx, task); err != nil {
			d.logger.Errorw("failed to enqueue notification",
				"task_id", task.ID,
				"kind", task.Kind,
				"group", selector.Group,
				"error", err,
			)
			return
		}
		d.logger.Debugw("notification queued", "task_id", task.ID, "kind", task.Kind)
	})
}
