package authz

import (
	"context"
	"time"
)

// PolicyRepository is the persistent store of grants. Lookups of absent
// grants return nil without error; Put replaces an existing grant and Delete
// of a missing grant succeeds.
type PolicyRepository interface {
	Get(ctx context.Context, level Level, subject, object string) (*Policy, error)
	ListBySubject(ctx context.Context, subject string) ([]*Policy, error)
	ListByObject(ctx context.Context, level Level, object string) ([]*Policy, error)
	Put(ctx context.Context, policy *Policy) error
	Delete(ctx context.Context, level Level, subject, object string) error
}

// PolicyCache holds a subject's resolved policies for ttl. Get returns
// found=false on a miss.
//
// Every Delete bumps the subject's generation. A loader reads Generation
// before reading the store and passes it to SetIfGeneration, which stores
// nothing (stored=false) once the generation has moved on.
type PolicyCache interface {
	Get(ctx context.Context, subject string) (policies []*Policy, found bool, err error)
	Generation(ctx context.Context, subject string) (int64, error)
	SetIfGeneration(ctx context.Context, subject string, gen int64, policies []*Policy, ttl time.Duration) (stored bool, err error)
	Delete(ctx context.Context, subject string) error
}

// GroupServiceRepository stores service entitlements per group. Get of an
// unknown group returns nil without error.
type GroupServiceRepository interface {
	Get(ctx context.Context, group string) (*GroupServices, error)
	Put(ctx context.Context, services *GroupServices) error
}

// GroupServiceCache mirrors PolicyCache, keyed by group name.
type GroupServiceCache interface {
	Get(ctx context.Context, group string) (services *GroupServices, found bool, err error)
	Generation(ctx context.Context, group string) (int64, error)
	SetIfGeneration(ctx context.Context, group string, gen int64, services *GroupServices, ttl time.Duration) (stored bool, err error)
	Delete(ctx context.Context, group string) error
}
