package treatment

import (
	"context"

	"vulntrack/internal/domain/authz"
)

// Transactor runs fn atomically. db.TransactionManager satisfies it.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Authorizer is the manager-role predicate used to gate acceptance
// approval and rejection.
type Authorizer interface {
	Authorize(ctx context.Context, level authz.Level, subject, object, action string) bool
}

// Metrics receives treatment telemetry.
type Metrics interface {
	ObserveTransition(status string)
	ObserveValidationFailure(code string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveTransition(string)        {}
func (nopMetrics) ObserveValidationFailure(string) {}
