package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/notification"
)

func groupPolicy(subject, role string) *authz.Policy {
	return authz.ReconstructPolicy(authz.LevelGroup, subject, "acme", role, "admin@vulntrack.io", time.Now())
}

func TestRecipientResolver(t *testing.T) {
	var gotLevel authz.Level
	var gotObject string
	lister := &mockPolicyLister{ListByObjectFunc: func(ctx context.Context, level authz.Level, object string) ([]*authz.Policy, error) {
		gotLevel, gotObject = level, object
		return []*authz.Policy{
			groupPolicy("manager@acme.com", "group_manager"),
			groupPolicy("dev@acme.com", "user"),
			groupPolicy("hacker@vulntrack.io", "hacker"),
			groupPolicy("service-account", "user"),
		}, nil
	}}
	r := NewRecipientResolver(lister)

	got, err := r.Resolve(context.Background(), notification.Selector{
		Group:  " ACME ",
		Roles:  []string{"group_manager", "user"},
		Emails: []string{"Dev@acme.com", "requester@acme.com", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, authz.LevelGroup, gotLevel)
	assert.Equal(t, "acme", gotObject)
	assert.Equal(t, []string{"dev@acme.com", "manager@acme.com", "requester@acme.com"}, got)
}

func TestRecipientResolver_NoRolesSkipsLookup(t *testing.T) {
	lister := &mockPolicyLister{ListByObjectFunc: func(context.Context, authz.Level, string) ([]*authz.Policy, error) {
		t.Fatal("no lookup expected")
		return nil, nil
	}}

	got, err := NewRecipientResolver(lister).Resolve(context.Background(), notification.Selector{Group: "acme", Emails: []string{"a@acme.com"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@acme.com"}, got)
}

func TestRecipientResolver_StoreError(t *testing.T) {
	lister := &mockPolicyLister{ListByObjectFunc: func(context.Context, authz.Level, string) ([]*authz.Policy, error) {
		return nil, errors.New("db gone")
	}}
	_, err := NewRecipientResolver(lister).Resolve(context.Background(), notification.Selector{Group: "acme", Roles: []string{"user"}})
	assert.ErrorContains(t, err, "db gone")
}
