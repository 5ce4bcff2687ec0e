package vulnerability

import (
	"context"
	"time"
)

// Repository persists vulnerabilities with their histories. Save inserts
// only the aggregate's pending entries, so concurrent savers never
// overwrite each other's history.
type Repository interface {
	Get(ctx context.Context, id string) (*Vulnerability, error)
	Create(ctx context.Context, v *Vulnerability) error
	Save(ctx context.Context, v *Vulnerability) error
	ListByFinding(ctx context.Context, findingID string) ([]*Vulnerability, error)
	ListByRoot(ctx context.Context, groupName, root string) ([]*Vulnerability, error)
	ListExpiredAcceptances(ctx context.Context, now time.Time) ([]*Vulnerability, error)
	FindByHash(ctx context.Context, hash string) (*Vulnerability, error)
	MaskByGroup(ctx context.Context, groupName string) (int64, error)
}
