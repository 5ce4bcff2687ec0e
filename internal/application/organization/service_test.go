package organization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/organization"
	apperrors "vulntrack/internal/shared/errors"
	"vulntrack/internal/shared/logger"
)

type mockOrganizationRepository struct {
	orgs               map[string]*organization.Organization
	UpdatePoliciesFunc func(ctx context.Context, org *organization.Organization) error
}

func (m *mockOrganizationRepository) Get(ctx context.Context, id string) (*organization.Organization, error) {
	return m.orgs[id], nil
}

func (m *mockOrganizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	m.orgs[org.ID()] = org
	return nil
}

func (m *mockOrganizationRepository) UpdatePolicies(ctx context.Context, org *organization.Organization) error {
	if m.UpdatePoliciesFunc != nil {
		return m.UpdatePoliciesFunc(ctx, org)
	}
	m.orgs[org.ID()] = org
	return nil
}

type mockGroupRepository struct {
	groups map[string]*organization.Group
}

func (m *mockGroupRepository) Get(ctx context.Context, name string) (*organization.Group, error) {
	return m.groups[name], nil
}

func (m *mockGroupRepository) Create(ctx context.Context, group *organization.Group) error {
	m.groups[group.Name] = group
	return nil
}

func (m *mockGroupRepository) SetDecommissioned(ctx context.Context, name string) error { return nil }

type mockAuthorizer struct {
	AuthorizeFunc func(level authz.Level, subject, object, action string) bool
}

func (m *mockAuthorizer) Authorize(ctx context.Context, level authz.Level, subject, object, action string) bool {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(level, subject, object, action)
	}
	return true
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

// adminOnly lets admin@vulntrack.io do anything on acme-corp and nobody
// else update policies.
func adminOnly(level authz.Level, subject, object, action string) bool {
	if action == authz.ActionUpdatePolicies {
		return subject == "admin@vulntrack.io" && object == "acme-corp"
	}
	return true
}

func newTestService() (*Service, *mockOrganizationRepository, *mockGroupRepository, *mockAuthorizer) {
	orgs := &mockOrganizationRepository{orgs: map[string]*organization.Organization{
		"org-1": organization.ReconstructOrganization("org-1", "acme-corp", organization.Policies{
			MaxAcceptanceDays:    intPtr(90),
			MaxNumberAcceptances: intPtr(3),
		}, fixedNow.Add(-24*time.Hour)),
	}}
	groups := &mockGroupRepository{groups: map[string]*organization.Group{}}
	authorizer := &mockAuthorizer{AuthorizeFunc: adminOnly}
	svc := NewService(orgs, groups, authorizer, logger.NewNopLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc, orgs, groups, authorizer
}

func TestUpdatePolicies(t *testing.T) {
	svc, orgs, _, _ := newTestService()
	ctx := context.Background()

	cmd := UpdatePoliciesCommand{
		OrganizationID:        "org-1",
		MaxAcceptanceDays:     intPtr(30),
		MaxAcceptanceSeverity: floatPtr(6.9),
		MaxNumberAcceptances:  intPtr(3),
	}

	_, err := svc.UpdatePolicies(ctx, cmd, "manager@acme.com")
	assert.True(t, apperrors.IsForbiddenError(err))

	policies, err := svc.UpdatePolicies(ctx, cmd, "admin@vulntrack.io")
	require.NoError(t, err)
	assert.Equal(t, 30, *policies.MaxAcceptanceDays)
	assert.Equal(t, "admin@vulntrack.io", policies.ModifiedBy)
	assert.Nil(t, policies.NumberAcceptancesEffectiveDate, "ceiling unchanged keeps the count running")
	assert.Equal(t, 6.9, *orgs.orgs["org-1"].Policies().MaxAcceptanceSeverity)

	cmd.MaxNumberAcceptances = intPtr(5)
	policies, err = svc.UpdatePolicies(ctx, cmd, "admin@vulntrack.io")
	require.NoError(t, err)
	require.NotNil(t, policies.NumberAcceptancesEffectiveDate)
	assert.True(t, policies.NumberAcceptancesEffectiveDate.Equal(fixedNow))

	_, err = svc.UpdatePolicies(ctx, cmd, "admin@vulntrack.io")
	assert.Equal(t, "same_values", apperrors.GetAppError(err).Reason)
}

func TestUpdatePolicies_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		cmd    UpdatePoliciesCommand
		reason string
	}{
		{"negative days", UpdatePoliciesCommand{OrganizationID: "org-1", MaxAcceptanceDays: intPtr(-1)}, "invalid_max_acceptance_days"},
		{"min above max", UpdatePoliciesCommand{OrganizationID: "org-1", MinAcceptanceSeverity: floatPtr(7), MaxAcceptanceSeverity: floatPtr(3)}, "invalid_severity_range"},
		{"severity above ten", UpdatePoliciesCommand{OrganizationID: "org-1", MaxAcceptanceSeverity: floatPtr(10.5)}, "invalid_severity_range"},
		{"negative acceptances", UpdatePoliciesCommand{OrganizationID: "org-1", MaxNumberAcceptances: intPtr(-2)}, "invalid_max_number_acceptances"},
		{"unknown organization", UpdatePoliciesCommand{OrganizationID: "org-9"}, "organization_not_found"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdatePolicies(ctx, tc.cmd, "admin@vulntrack.io")
			require.Error(t, err)
			assert.Equal(t, tc.reason, apperrors.GetAppError(err).Reason)
		})
	}

	_, err := svc.UpdatePolicies(ctx, UpdatePoliciesCommand{}, "admin@vulntrack.io")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestUpdatePolicies_StorageFailure(t *testing.T) {
	svc, orgs, _, _ := newTestService()
	orgs.UpdatePoliciesFunc = func(ctx context.Context, org *organization.Organization) error {
		return errors.New("connection refused")
	}

	_, err := svc.UpdatePolicies(context.Background(), UpdatePoliciesCommand{OrganizationID: "org-1", MaxAcceptanceDays: intPtr(10)}, "admin@vulntrack.io")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.GetAppError(err).Type)
}

func TestGetPolicies(t *testing.T) {
	svc, _, _, authorizer := newTestService()
	ctx := context.Background()

	policies, err := svc.GetPolicies(ctx, "org-1", "user@acme.com")
	require.NoError(t, err)
	assert.Equal(t, 90, *policies.MaxAcceptanceDays)

	authorizer.AuthorizeFunc = func(authz.Level, string, string, string) bool { return false }
	_, err = svc.GetPolicies(ctx, "org-1", "stranger@example.com")
	assert.True(t, apperrors.IsForbiddenError(err))
}

func TestCreateOrganizationAndGroup(t *testing.T) {
	svc, _, groups, authorizer := newTestService()
	ctx := context.Background()

	org, err := svc.CreateOrganization(ctx, CreateOrganizationCommand{Name: " Globex "}, "admin@vulntrack.io")
	require.NoError(t, err)
	assert.Equal(t, "globex", org.Name())

	g, err := svc.CreateGroup(ctx, CreateGroupCommand{Name: "Unit7", OrganizationID: org.ID()}, "admin@vulntrack.io")
	require.NoError(t, err)
	assert.Equal(t, "unit7", g.Name)
	assert.Equal(t, org.ID(), groups.groups["unit7"].OrganizationID)

	_, err = svc.CreateGroup(ctx, CreateGroupCommand{Name: "unit7", OrganizationID: org.ID()}, "admin@vulntrack.io")
	assert.True(t, apperrors.IsConflictError(err))

	_, err = svc.CreateGroup(ctx, CreateGroupCommand{Name: "unit8"}, "admin@vulntrack.io")
	assert.True(t, apperrors.IsValidationError(err))

	authorizer.AuthorizeFunc = func(authz.Level, string, string, string) bool { return false }
	_, err = svc.CreateOrganization(ctx, CreateOrganizationCommand{Name: "initech"}, "user@acme.com")
	assert.True(t, apperrors.IsForbiddenError(err))
}
