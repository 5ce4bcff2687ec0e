package notification

import (
	"context"
	"sync"
	"time"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/notification"
)

type mockQueue struct {
	EnqueueFunc func(ctx context.Context, task *notification.Task) error
	enqueued    chan *notification.Task
}

func newMockQueue() *mockQueue {
	return &mockQueue{enqueued: make(chan *notification.Task, 8)}
}

func (m *mockQueue) Enqueue(ctx context.Context, task *notification.Task) error {
	if m.EnqueueFunc != nil {
		if err := m.EnqueueFunc(ctx, task); err != nil {
			return err
		}
	}
	m.enqueued <- task
	return nil
}

func (m *mockQueue) Dequeue(ctx context.Context, timeout time.Duration) (*notification.Task, error) {
	return nil, nil
}

type mockTaskSource struct {
	mu       sync.Mutex
	tasks    []*notification.Task
	dead     []*notification.Task
	causes   []error
	clones   []*notification.Task
	CloneErr error
}

func (m *mockTaskSource) Dequeue(ctx context.Context, timeout time.Duration) (*notification.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return nil, nil
	}
	t := m.tasks[0]
	m.tasks = m.tasks[1:]
	return t, nil
}

func (m *mockTaskSource) DeadLetter(ctx context.Context, task *notification.Task, cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dead = append(m.dead, task)
	m.causes = append(m.causes, cause)
	return nil
}

func (m *mockTaskSource) PublishCloneRoots(ctx context.Context, task *notification.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CloneErr != nil {
		return m.CloneErr
	}
	m.clones = append(m.clones, task)
	return nil
}

func (m *mockTaskSource) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

type sentMail struct {
	To      []string
	Subject string
	HTML    string
}

type mockMailer struct {
	mu       sync.Mutex
	SendFunc func(attempt int) error
	attempts int
	sent     []sentMail
}

func (m *mockMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.SendFunc != nil {
		if err := m.SendFunc(m.attempts); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: htmlBody})
	return nil
}

func (m *mockMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type mockChat struct {
	enabled bool
	SendErr error
	titles  []string
	bodies  []string
}

func (m *mockChat) Enabled() bool { return m.enabled }

func (m *mockChat) Send(ctx context.Context, title, message string) error {
	m.titles = append(m.titles, title)
	m.bodies = append(m.bodies, message)
	return m.SendErr
}

type mockPolicyLister struct {
	ListByObjectFunc func(ctx context.Context, level authz.Level, object string) ([]*authz.Policy, error)
}

func (m *mockPolicyLister) ListByObject(ctx context.Context, level authz.Level, object string) ([]*authz.Policy, error) {
	if m.ListByObjectFunc != nil {
		return m.ListByObjectFunc(ctx, level, object)
	}
	return nil, nil
}

type staticResolver struct {
	emails []string
	err    error
}

func (s staticResolver) Resolve(ctx context.Context, selector notification.Selector) ([]string, error) {
	return s.emails, s.err
}
