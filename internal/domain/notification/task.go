package notification

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrMailerNotConfigured is returned by a Mailer with no relay. Retrying
// cannot help.
var ErrMailerNotConfigured = errors.New("mail delivery is not configured")

// Kind names what happened. Workers choose templates and channels by kind.
type Kind string

const (
	KindTreatmentChanged      Kind = "treatment_changed"
	KindAcceptanceSubmitted   Kind = "acceptance_submitted"
	KindAcceptanceApproved    Kind = "acceptance_approved"
	KindAcceptanceRejected    Kind = "acceptance_rejected"
	KindAcceptanceReport      Kind = "acceptance_report"
	KindZeroRiskRequested     Kind = "zero_risk_requested"
	KindZeroRiskConfirmed     Kind = "zero_risk_confirmed"
	KindZeroRiskRejected      Kind = "zero_risk_rejected"
	KindVerificationRequested Kind = "verification_requested"
	KindVerificationDone      Kind = "verification_done"
	KindCloneRoots            Kind = "clone_roots"
)

var validKinds = map[Kind]bool{
	KindTreatmentChanged:      true,
	KindAcceptanceSubmitted:   true,
	KindAcceptanceApproved:    true,
	KindAcceptanceRejected:    true,
	KindAcceptanceReport:      true,
	KindZeroRiskRequested:     true,
	KindZeroRiskConfirmed:     true,
	KindZeroRiskRejected:      true,
	KindVerificationRequested: true,
	KindVerificationDone:      true,
	KindCloneRoots:            true,
}

func (k Kind) IsValid() bool {
	return validKinds[k]
}

// IsMail reports whether tasks of this kind are delivered to people.
func (k Kind) IsMail() bool {
	return k.IsValid() && k != KindCloneRoots
}

// Selector describes the recipients: every subject holding one of Roles on
// Group, plus explicit Emails.
type Selector struct {
	Group  string   `json:"group"`
	Roles  []string `json:"roles,omitempty"`
	Emails []string `json:"emails,omitempty"`
}

// Payload is the kind-specific body. Values must be JSON encodable.
type Payload map[string]any

// Task is a queued notification.
type Task struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Selector  Selector  `json:"selector"`
	Payload   Payload   `json:"payload"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

func NewTask(id string, kind Kind, selector Selector, payload Payload, now time.Time) (*Task, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid notification kind: %s", kind)
	}
	if payload == nil {
		payload = Payload{}
	}
	return &Task{
		ID:        id,
		Kind:      kind,
		Selector:  selector,
		Payload:   payload,
		CreatedAt: now.UTC(),
	}, nil
}

// Notifier is the fire-and-forget entry point used by the core. It never
// reports failure to its caller.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, selector Selector, payload Payload)
}

// Queue carries tasks from producers to the worker. Dequeue blocks up to
// timeout and returns nil, nil when nothing arrived.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Task, error)
}

// Mailer delivers a rendered message.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// RecipientResolver expands a selector into e-mail addresses.
type RecipientResolver interface {
	Resolve(ctx context.Context, selector Selector) ([]string, error)
}
