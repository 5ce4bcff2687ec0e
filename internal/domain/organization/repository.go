package organization

import "context"

// Repository loads and stores organizations. Missing rows are nil, nil.
type Repository interface {
	Get(ctx context.Context, id string) (*Organization, error)
	Create(ctx context.Context, org *Organization) error
	UpdatePolicies(ctx context.Context, org *Organization) error
}

type GroupRepository interface {
	Get(ctx context.Context, name string) (*Group, error)
	Create(ctx context.Context, group *Group) error
	SetDecommissioned(ctx context.Context, name string) error
}
