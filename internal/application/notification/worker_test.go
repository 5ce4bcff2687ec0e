package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulntrack/internal/domain/notification"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/services/markdown"
)

var fastRetries = WorkerConfig{
	PollTimeout:     10 * time.Millisecond,
	MaxRetries:      2,
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
}

func newTestWorker(source *mockTaskSource, resolver notification.RecipientResolver, mailer *mockMailer, chat ChatSender) *Worker {
	return NewWorker(source, resolver, mailer, chat, NewMessageRenderer(markdown.NewRenderer()), fastRetries, logger.NewNopLogger())
}

func TestWorker_Handle(t *testing.T) {
	recipients := staticResolver{emails: []string{"manager@acme.com"}}
	payload := notification.Payload{"group": "acme", "status": "ACCEPTED"}

	t.Run("delivers mail", func(t *testing.T) {
		source, mailer := &mockTaskSource{}, &mockMailer{}
		w := newTestWorker(source, recipients, mailer, nil)
		task := newTask(t, notification.KindTreatmentChanged, payload)

		require.NoError(t, w.Handle(context.Background(), task))
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, []string{"manager@acme.com"}, mailer.sent[0].To)
		assert.Equal(t, "[Vulntrack] Treatment Changed | acme", mailer.sent[0].Subject)
		assert.Equal(t, 1, task.Attempts)
		assert.Empty(t, source.dead)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		source := &mockTaskSource{}
		mailer := &mockMailer{SendFunc: func(attempt int) error {
			if attempt < 3 {
				return errors.New("421 try later")
			}
			return nil
		}}
		w := newTestWorker(source, recipients, mailer, nil)
		task := newTask(t, notification.KindTreatmentChanged, payload)

		require.NoError(t, w.Handle(context.Background(), task))
		assert.Equal(t, 3, task.Attempts)
		assert.Len(t, mailer.sent, 1)
		assert.Empty(t, source.dead)
	})

	t.Run("dead-letters after the last retry", func(t *testing.T) {
		source := &mockTaskSource{}
		mailer := &mockMailer{SendFunc: func(int) error { return errors.New("550 relay denied") }}
		w := newTestWorker(source, recipients, mailer, nil)
		task := newTask(t, notification.KindTreatmentChanged, payload)

		err := w.Handle(context.Background(), task)
		require.Error(t, err)
		assert.Equal(t, 3, mailer.attempts)
		require.Len(t, source.dead, 1)
		assert.Equal(t, task.ID, source.dead[0].ID)
		assert.ErrorContains(t, source.causes[0], "550 relay denied")
	})

	t.Run("drops mail when delivery is not configured", func(t *testing.T) {
		source := &mockTaskSource{}
		mailer := &mockMailer{SendFunc: func(int) error { return notification.ErrMailerNotConfigured }}
		w := newTestWorker(source, recipients, mailer, nil)

		require.NoError(t, w.Handle(context.Background(), newTask(t, notification.KindTreatmentChanged, payload)))
		assert.Equal(t, 1, mailer.attempts)
		assert.Empty(t, source.dead)
	})

	t.Run("no recipients", func(t *testing.T) {
		source, mailer := &mockTaskSource{}, &mockMailer{}
		w := newTestWorker(source, staticResolver{}, mailer, nil)

		require.NoError(t, w.Handle(context.Background(), newTask(t, notification.KindTreatmentChanged, payload)))
		assert.Zero(t, mailer.attempts)
	})

	t.Run("resolver failure is dead-lettered", func(t *testing.T) {
		source, mailer := &mockTaskSource{}, &mockMailer{}
		w := newTestWorker(source, staticResolver{err: errors.New("db gone")}, mailer, nil)

		require.Error(t, w.Handle(context.Background(), newTask(t, notification.KindTreatmentChanged, payload)))
		assert.Len(t, source.dead, 1)
		assert.Zero(t, mailer.attempts)
	})

	t.Run("fans out to chat", func(t *testing.T) {
		source, mailer := &mockTaskSource{}, &mockMailer{}
		chat := &mockChat{enabled: true, SendErr: errors.New("webhook 500")}
		w := newTestWorker(source, recipients, mailer, chat)

		require.NoError(t, w.Handle(context.Background(), newTask(t, notification.KindAcceptanceRejected, payload)))
		assert.Equal(t, []string{"[Vulntrack] Acceptance Rejected | acme"}, chat.titles)
		assert.Contains(t, chat.bodies[0], "Status: ACCEPTED")
		assert.Len(t, mailer.sent, 1)
	})

	t.Run("disabled chat is skipped", func(t *testing.T) {
		chat := &mockChat{}
		w := newTestWorker(&mockTaskSource{}, recipients, &mockMailer{}, chat)

		require.NoError(t, w.Handle(context.Background(), newTask(t, notification.KindTreatmentChanged, payload)))
		assert.Empty(t, chat.titles)
	})
}

func TestWorker_CloneRoots(t *testing.T) {
	source, mailer := &mockTaskSource{}, &mockMailer{}
	w := newTestWorker(source, staticResolver{emails: []string{"a@acme.com"}}, mailer, nil)
	task := newTask(t, notification.KindCloneRoots, notification.Payload{"roots": []string{"backend"}})

	require.NoError(t, w.Handle(context.Background(), task))
	require.Len(t, source.clones, 1)
	assert.Zero(t, mailer.attempts)

	source.CloneErr = errors.New("redis down")
	require.Error(t, w.Handle(context.Background(), task))
	assert.Len(t, source.dead, 1)
}

func TestWorker_RunDrainsUntilCancelled(t *testing.T) {
	mailer := &mockMailer{}
	source := &mockTaskSource{tasks: []*notification.Task{
		newTask(t, notification.KindTreatmentChanged, notification.Payload{"group": "acme"}),
		newTask(t, notification.KindZeroRiskConfirmed, notification.Payload{"group": "acme"}),
	}}
	w := newTestWorker(source, staticResolver{emails: []string{"a@acme.com"}}, mailer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return mailer.sentCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Zero(t, source.pending())
}
