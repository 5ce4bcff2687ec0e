package organization

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vulntrack/internal/application/common"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/shared/biztime"
	apperrors "vulntrack/internal/shared/errors"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/utils"
)

type Authorizer interface {
	Authorize(ctx context.Context, level authz.Level, subject, object, action string) bool
}

// Service owns organizations, their groups and the acceptance policies
// the treatment engine enforces.
type Service struct {
	orgs       organization.Repository
	groups     organization.GroupRepository
	authorizer Authorizer
	logger     logger.Interface
	now        func() time.Time
}

func NewService(orgs organization.Repository, groups organization.GroupRepository, authorizer Authorizer, log logger.Interface) *Service {
	return &Service{
		orgs:       orgs,
		groups:     groups,
		authorizer: authorizer,
		logger:     log,
		now:        biztime.NowUTC,
	}
}

type CreateOrganizationCommand struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateOrganization is restricted to user-level admins.
func (s *Service) CreateOrganization(ctx context.Context, cmd CreateOrganizationCommand, actor string) (*organization.Organization, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}
	if !s.authorizer.Authorize(ctx, authz.LevelUser, actor, authz.SelfObject, authz.ActionGrantOrganizationAccess) {
		return nil, apperrors.NewAccessDeniedError()
	}

	org, err := organization.NewOrganization(uuid.NewString(), cmd.Name, s.now())
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		s.logger.Errorw("failed to create organization", "name", cmd.Name, "error", err)
		return nil, common.ToAppError(err)
	}
	s.logger.Infow("organization created", "organization_id", org.ID(), "name", org.Name(), "actor", actor)
	return org, nil
}

type CreateGroupCommand struct {
	Name           string `json:"name" validate:"required,max=100"`
	OrganizationID string `json:"organization_id" validate:"required"`
}

// CreateGroup adds a group to an organization. The caller needs grant
// rights on the organization.
func (s *Service) CreateGroup(ctx context.Context, cmd CreateGroupCommand, actor string) (*organization.Group, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}
	org, err := s.loadOrganization(ctx, cmd.OrganizationID)
	if err != nil {
		return nil, s.fail("create group", err, "organization_id", cmd.OrganizationID)
	}
	if !s.authorizer.Authorize(ctx, authz.LevelOrganization, actor, org.Name(), authz.ActionGrantOrganizationAccess) {
		return nil, apperrors.NewAccessDeniedError()
	}

	g := &organization.Group{Name: authz.Normalize(cmd.Name), OrganizationID: org.ID()}
	if existing, err := s.groups.Get(ctx, g.Name); err != nil {
		return nil, s.fail("create group", err, "group", g.Name)
	} else if existing != nil {
		return nil, s.fail("create group", organization.ErrGroupExists, "group", g.Name)
	}
	if err := s.groups.Create(ctx, g); err != nil {
		return nil, s.fail("create group", err, "group", g.Name)
	}
	s.logger.Infow("group created", "group", g.Name, "organization_id", org.ID(), "actor", actor)
	return g, nil
}

// GetPolicies returns an organization's acceptance policies to anyone
// allowed to view them.
func (s *Service) GetPolicies(ctx context.Context, orgID, actor string) (organization.Policies, error) {
	org, err := s.loadOrganization(ctx, orgID)
	if err != nil {
		return organization.Policies{}, s.fail("get policies", err, "organization_id", orgID)
	}
	if !s.authorizer.Authorize(ctx, authz.LevelOrganization, actor, org.Name(), authz.ActionViewPolicies) {
		return organization.Policies{}, apperrors.NewAccessDeniedError()
	}
	return org.Policies(), nil
}

// UpdatePoliciesCommand carries the new limits. Nil fields clear a limit.
type UpdatePoliciesCommand struct {
	OrganizationID        string   `json:"-" validate:"required"`
	MaxAcceptanceDays     *int     `json:"max_acceptance_days"`
	MinAcceptanceSeverity *float64 `json:"min_acceptance_severity"`
	MaxAcceptanceSeverity *float64 `json:"max_acceptance_severity"`
	MaxNumberAcceptances  *int     `json:"max_number_acceptances"`
}

// UpdatePolicies replaces an organization's acceptance limits. Only
// subjects holding organization:update_policies may call it. Changing the
// acceptance ceiling restarts the count from now.
func (s *Service) UpdatePolicies(ctx context.Context, cmd UpdatePoliciesCommand, actor string) (organization.Policies, error) {
	const op = "update policies"
	kv := []any{"organization_id", cmd.OrganizationID, "actor", actor}

	if err := utils.ValidateStruct(cmd); err != nil {
		return organization.Policies{}, err
	}
	org, err := s.loadOrganization(ctx, cmd.OrganizationID)
	if err != nil {
		return organization.Policies{}, s.fail(op, err, kv...)
	}
	if !s.authorizer.Authorize(ctx, authz.LevelOrganization, actor, org.Name(), authz.ActionUpdatePolicies) {
		s.logger.Warnw("policy update denied", kv...)
		return organization.Policies{}, apperrors.NewAccessDeniedError()
	}

	next := organization.Policies{
		MaxAcceptanceDays:     cmd.MaxAcceptanceDays,
		MinAcceptanceSeverity: cmd.MinAcceptanceSeverity,
		MaxAcceptanceSeverity: cmd.MaxAcceptanceSeverity,
		MaxNumberAcceptances:  cmd.MaxNumberAcceptances,
	}
	if err := org.UpdatePolicies(next, actor, s.now()); err != nil {
		return organization.Policies{}, s.fail(op, err, kv...)
	}
	if err := s.orgs.UpdatePolicies(ctx, org); err != nil {
		return organization.Policies{}, s.fail(op, err, kv...)
	}

	s.logger.Infow("organization policies updated", kv...)
	return org.Policies(), nil
}

func (s *Service) loadOrganization(ctx context.Context, id string) (*organization.Organization, error) {
	org, err := s.orgs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, organization.ErrOrganizationNotFound
	}
	return org, nil
}

func (s *Service) fail(op string, err error, kv ...any) error {
	if common.IsExpected(err) {
		s.logger.Infow(op+" rejected", append(kv, "error", err)...)
	} else {
		s.logger.Errorw(op+" failed", append(kv, "error", err)...)
	}
	return common.ToAppError(err)
}
