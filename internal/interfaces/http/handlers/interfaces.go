package handlers

import (
	"context"

	appauthz "vulntrack/internal/application/authz"
	appfinding "vulntrack/internal/application/finding"
	apporganization "vulntrack/internal/application/organization"
	"vulntrack/internal/application/treatment"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/domain/vulnerability"
)

// Service interfaces for the handlers, narrowed so tests can mock them.

// guardFactory builds route guards. *appauthz.Guards satisfies it.
type guardFactory interface {
	RequireLogin() appauthz.Guard
	RequireLevelAction(level authz.Level, action string) appauthz.Guard
	RequireService(svc authz.Service) appauthz.Guard
	RequireStaff() appauthz.Guard
}

type authzService interface {
	Authorize(ctx context.Context, level authz.Level, subject, object, action string) bool
	Grant(ctx context.Context, level authz.Level, subject, object, role, actor string) (bool, error)
	Revoke(ctx context.Context, level authz.Level, subject, object, actor string) (bool, error)
	Policies(ctx context.Context, subject string) ([]*authz.Policy, error)
	GrantService(ctx context.Context, group string, svc authz.Service, actor string) error
	RevokeService(ctx context.Context, group string, svc authz.Service, actor string) error
}

type treatmentEngine interface {
	ProposeTreatment(ctx context.Context, cmd treatment.ProposeTreatmentCommand, actor string) (vulnerability.Treatment, error)
	ApproveAcceptance(ctx context.Context, cmd treatment.ReviewAcceptanceCommand, actor string) (vulnerability.Treatment, error)
	RejectAcceptance(ctx context.Context, cmd treatment.ReviewAcceptanceCommand, actor string) (vulnerability.Treatment, error)
	RequestZeroRisk(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error
	ConfirmZeroRisk(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error
	RejectZeroRisk(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error
	RemoveVulnerability(ctx context.Context, cmd treatment.RemoveVulnerabilityCommand, actor string) error
	RequestVerification(ctx context.Context, cmd treatment.RequestVerificationCommand, actor string) error
	Verify(ctx context.Context, cmd treatment.VerifyCommand, actor string) error
	CloseByExclusion(ctx context.Context, cmd treatment.CloseByExclusionCommand, actor string) (int, error)
}

// vulnerabilityLookup and findingLookup resolve the group a request acts
// on. Both return nil without error for unknown ids.
type vulnerabilityLookup interface {
	Get(ctx context.Context, id string) (*vulnerability.Vulnerability, error)
}

type findingLookup interface {
	Get(ctx context.Context, id string) (*finding.Finding, error)
}

type findingService interface {
	CreateDraft(ctx context.Context, cmd appfinding.CreateDraftCommand, actor string) (*finding.Finding, error)
	ReportVulnerability(ctx context.Context, cmd appfinding.ReportVulnerabilityCommand, actor string) (*vulnerability.Vulnerability, bool, error)
	SubmitDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error)
	ApproveDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error)
	RejectDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error)
	RemoveFinding(ctx context.Context, cmd appfinding.RemoveFindingCommand, actor string) error
	DecommissionGroup(ctx context.Context, groupName, actor string) error
	MaskFindings(ctx context.Context, groupName, actor string) (int64, error)
}

type organizationService interface {
	CreateOrganization(ctx context.Context, cmd apporganization.CreateOrganizationCommand, actor string) (*organization.Organization, error)
	CreateGroup(ctx context.Context, cmd apporganization.CreateGroupCommand, actor string) (*organization.Group, error)
	GetPolicies(ctx context.Context, orgID, actor string) (organization.Policies, error)
	UpdatePolicies(ctx context.Context, cmd apporganization.UpdatePoliciesCommand, actor string) (organization.Policies, error)
}
