package notification

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"vulntrack/internal/domain/notification"
	"vulntrack/internal/shared/logger"
)

// TaskSource is the worker's side of the queue.
type TaskSource interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*notification.Task, error)
	DeadLetter(ctx context.Context, task *notification.Task, cause error) error
	PublishCloneRoots(ctx context.Context, task *notification.Task) error
}

// ChatSender posts to chat channels. Enabled reports whether any channel
// is configured.
type ChatSender interface {
	Enabled() bool
	Send(ctx context.Context, title, message string) error
}

type WorkerConfig struct {
	PollTimeout     time.Duration
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = 500 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 30 * time.Second
	}
	return c
}

// Worker drains the notification queue: mail to resolved recipients,
// optional chat fan-out, clone requests to the cloner's list.
type Worker struct {
	source   TaskSource
	resolver notification.RecipientResolver
	mailer   notification.Mailer
	chat     ChatSender
	renderer *MessageRenderer
	cfg      WorkerConfig
	logger   logger.Interface
}

func NewWorker(
	source TaskSource,
	resolver notification.RecipientResolver,
	mailer notification.Mailer,
	chat ChatSender,
	renderer *MessageRenderer,
	cfg WorkerConfig,
	log logger.Interface,
) *Worker {
	return &Worker{
		source:   source,
		resolver: resolver,
		mailer:   mailer,
		chat:     chat,
		renderer: renderer,
		cfg:      cfg.withDefaults(),
		logger:   log,
	}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Infow("notification worker started", "poll_timeout", w.cfg.PollTimeout)
	defer w.logger.Infow("notification worker stopped")

	for {
		if ctx.Err() != nil {
			return nil
		}
		task, err := w.source.Dequeue(ctx, w.cfg.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			w.logger.Errorw("failed to dequeue notification", "error", err)
			if !sleep(ctx, w.cfg.PollTimeout) {
				return nil
			}
			continue
		}
		if task == nil {
			continue
		}
		if err := w.Handle(ctx, task); err != nil {
			w.logger.Warnw("notification not delivered", "task_id", task.ID, "kind", task.Kind, "error", err)
		}
	}
}

// Handle delivers one task. Tasks whose mail could not be sent after all
// retries are moved to the dead-letter list.
func (w *Worker) Handle(ctx context.Context, task *notification.Task) error {
	if task.Kind == notification.KindCloneRoots {
		if err := w.source.PublishCloneRoots(ctx, task); err != nil {
			w.deadLetter(ctx, task, err)
			return err
		}
		w.logger.Infow("clone requested", "task_id", task.ID, "group", task.Selector.Group, "roots", task.Payload["roots"])
		return nil
	}
	if !task.Kind.IsMail() {
		w.logger.Warnw("dropping notification of unknown kind", "task_id", task.ID, "kind", task.Kind)
		return nil
	}

	msg, err := w.renderer.Render(task)
	if err != nil {
		w.deadLetter(ctx, task, err)
		return err
	}

	w.postToChat(ctx, task, msg)

	recipients, err := w.resolver.Resolve(ctx, task.Selector)
	if err != nil {
		w.deadLetter(ctx, task, err)
		return err
	}
	if len(recipients) == 0 {
		w.logger.Infow("notification has no recipients", "task_id", task.ID, "kind", task.Kind, "group", task.Selector.Group)
		return nil
	}

	if err := w.sendMail(ctx, task, recipients, msg); err != nil {
		if errors.Is(err, notification.ErrMailerNotConfigured) {
			w.logger.Warnw("mail delivery disabled, notification dropped", "task_id", task.ID, "kind", task.Kind)
			return nil
		}
		w.deadLetter(ctx, task, err)
		return err
	}

	w.logger.Infow("notification sent",
		"task_id", task.ID,
		"kind", task.Kind,
		"recipients", len(recipients),
		"attempts", task.Attempts,
	)
	return nil
}

func (w *Worker) sendMail(ctx context.Context, task *notification.Task, to []string, msg Message) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = w.cfg.InitialInterval
	expBackoff.MaxInterval = w.cfg.MaxInterval

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		task.Attempts++
		err := w.mailer.Send(ctx, to, msg.Subject, msg.HTML)
		if errors.Is(err, notification.ErrMailerNotConfigured) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(w.cfg.MaxRetries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			w.logger.Warnw("mail send failed, retrying", "task_id", task.ID, "attempt", task.Attempts, "retry_in", next, "error", err)
		}),
	)
	return err
}

func (w *Worker) postToChat(ctx context.Context, task *notification.Task, msg Message) {
	if w.chat == nil || !w.chat.Enabled() {
		return
	}
	if err := w.chat.Send(ctx, msg.Subject, msg.Text); err != nil {
		w.logger.Warnw("chat fan-out failed", "task_id", task.ID, "kind", task.Kind, "error", err)
	}
}

func (w *Worker) deadLetter(ctx context.Context, task *notification.Task, cause error) {
	if err := w.source.DeadLetter(ctx, task, cause); err != nil {
		w.logger.Errorw("failed to dead-letter notification", "task_id", task.ID, "kind", task.Kind, "cause", cause, "error", err)
		return
	}
	w.logger.Errorw("notification dead-lettered", "task_id", task.ID, "kind", task.Kind, "attempts", task.Attempts, "error", cause)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
