// Package finding manages the draft review lifecycle of findings and the
// vulnerabilities reported under them.
package finding

import (
	"context"
	"time"

	"github.com/google/uuid"

	"vulntrack/internal/application/common"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/domain/vulnerability"
	"vulntrack/internal/shared/biztime"
	apperrors "vulntrack/internal/shared/errors"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/utils"
)

type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Authorizer interface {
	Authorize(ctx context.Context, level authz.Level, subject, object, action string) bool
}

type Service struct {
	findings   finding.Repository
	vulns      vulnerability.Repository
	groups     organization.GroupRepository
	tx         Transactor
	authorizer Authorizer
	logger     logger.Interface
	now        func() time.Time
}

func NewService(
	findings finding.Repository,
	vulns vulnerability.Repository,
	groups organization.GroupRepository,
	tx Transactor,
	authorizer Authorizer,
	log logger.Interface,
) *Service {
	return &Service{
		findings:   findings,
		vulns:      vulns,
		groups:     groups,
		tx:         tx,
		authorizer: authorizer,
		logger:     log,
		now:        biztime.NowUTC,
	}
}

type CreateDraftCommand struct {
	GroupName      string  `json:"group_name" validate:"required,max=100"`
	Title          string  `json:"title" validate:"required,max=200"`
	Severity       float64 `json:"severity" validate:"gte=0,lte=10"`
	Description    string  `json:"description" validate:"max=10000"`
	Threat         string  `json:"threat" validate:"max=10000"`
	Recommendation string  `json:"recommendation" validate:"max=10000"`
}

// CreateDraft opens a finding in CREATED on an active group.
func (s *Service) CreateDraft(ctx context.Context, cmd CreateDraftCommand, actor string) (*finding.Finding, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, err
	}
	if _, err := s.activeGroup(ctx, cmd.GroupName); err != nil {
		return nil, s.fail("create draft", err, "group", cmd.GroupName)
	}

	f, err := finding.NewFinding(uuid.NewString(), cmd.GroupName, cmd.Title, cmd.Severity, actor, s.now())
	if err != nil {
		return nil, s.fail("create draft", err, "group", cmd.GroupName)
	}
	if err := f.UpdateDescription(cmd.Description, cmd.Threat, cmd.Recommendation, cmd.Severity); err != nil {
		return nil, s.fail("create draft", err, "group", cmd.GroupName)
	}
	if err := s.findings.Create(ctx, f); err != nil {
		return nil, s.fail("create draft", err, "group", cmd.GroupName)
	}

	s.logger.Infow("draft created", "finding_id", f.ID(), "group", f.GroupName(), "actor", actor)
	return f, nil
}

type ReportVulnerabilityCommand struct {
	FindingID string `json:"finding_id" validate:"required"`
	Root      string `json:"root" validate:"max=200"`
	Type      string `json:"type" validate:"required,oneof=lines ports inputs"`
	Where     string `json:"where" validate:"required,max=4096"`
	Specific  string `json:"specific" validate:"max=1024"`
	Source    string `json:"source" validate:"omitempty,oneof=analyst customer machine system"`
}

// ReportVulnerability adds a location to a finding. A location already
// reported (same fingerprint, not deleted) is returned as is with created
// false.
func (s *Service) ReportVulnerability(ctx context.Context, cmd ReportVulnerabilityCommand, actor string) (v *vulnerability.Vulnerability, created bool, err error) {
	const op = "report vulnerability"
	if err := utils.ValidateStruct(cmd); err != nil {
		return nil, false, err
	}
	f, err := s.loadFinding(ctx, cmd.FindingID)
	if err != nil {
		return nil, false, s.fail(op, err, "finding_id", cmd.FindingID)
	}

	vulnType := vulnerability.Type(cmd.Type)
	hash := vulnerability.Fingerprint(f.ID(), vulnType, cmd.Where, cmd.Specific)
	existing, err := s.vulns.FindByHash(ctx, hash)
	if err != nil {
		return nil, false, s.fail(op, err, "finding_id", f.ID())
	}
	if existing != nil && existing.State() != vulnerability.StateDeleted {
		return existing, false, nil
	}

	source := vulnerability.Source(cmd.Source)
	if source == "" {
		source = vulnerability.SourceAnalyst
	}
	v, err = vulnerability.NewVulnerability(uuid.NewString(), f.ID(), f.GroupName(), cmd.Root,
		vulnType, cmd.Where, cmd.Specific, source, actor, s.now())
	if err != nil {
		return nil, false, apperrors.NewValidationError(err.Error())
	}
	if err := s.vulns.Create(ctx, v); err != nil {
		return nil, false, s.fail(op, err, "finding_id", f.ID())
	}

	s.logger.Infow("vulnerability reported", "finding_id", f.ID(), "vulnerability_id", v.ID(), "actor", actor)
	return v, true, nil
}

// SubmitDraft sends a complete draft that owns at least one live
// vulnerability to review.
func (s *Service) SubmitDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error) {
	const op = "submit draft"
	f, err := s.loadFinding(ctx, findingID)
	if err != nil {
		return nil, s.fail(op, err, "finding_id", findingID)
	}
	vulns, err := s.vulns.ListByFinding(ctx, f.ID())
	if err != nil {
		return nil, s.fail(op, err, "finding_id", findingID)
	}
	live := 0
	for _, v := range vulns {
		if v.State() != vulnerability.StateDeleted {
			live++
		}
	}

	if err := f.Submit(live, actor, s.now()); err != nil {
		return nil, s.fail(op, err, "finding_id", findingID)
	}
	if err := s.findings.Update(ctx, f); err != nil {
		return nil, s.fail(op, err, "finding_id", findingID)
	}
	s.logger.Infow("draft submitted", "finding_id", f.ID(), "vulnerabilities", live, "actor", actor)
	return f, nil
}

// ApproveDraft releases a submitted draft to the customer.
func (s *Service) ApproveDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error) {
	return s.review(ctx, "approve draft", authz.ActionApproveDraft, findingID, actor, (*finding.Finding).Approve)
}

// RejectDraft sends a submitted draft back to its author.
func (s *Service) RejectDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error) {
	return s.review(ctx, "reject draft", authz.ActionRejectDraft, findingID, actor, (*finding.Finding).Reject)
}

func (s *Service) review(
	ctx context.Context,
	op, action, findingID, actor string,
	transition func(f *finding.Finding, actor string, now time.Time) error,
) (*finding.Finding, error) {
	f, err := s.loadFinding(ctx, findingID)
	if err != nil {
		return nil, s.fail(op, err, "finding_id", findingID)
	}
	if !s.authorizer.Authorize(ctx, authz.LevelGroup, actor, f.GroupName(), action) {
		return nil, s.fail(op, apperrors.NewAccessDeniedError(), "finding_id", findingID, "actor", actor)
	}
	if err := transition(f, actor, s.now()); err != nil {
		return nil, s.fail(op, err, "finding_id", findingID, "status", f.Status())
	}
	if err := s.findings.Update(ctx, f); err != nil {
		return nil, s.fail(op, err, "finding_id", findingID)
	}
	s.logger.Infow(op+" done", "finding_id", f.ID(), "status", f.Status(), "actor", actor)
	return f, nil
}

type RemoveFindingCommand struct {
	FindingID     string `json:"finding_id" validate:"required"`
	Justification string `json:"justification" validate:"required,max=10000"`
}

// RemoveFinding soft-deletes the finding and every vulnerability under it
// in one transaction.
func (s *Service) RemoveFinding(ctx context.Context, cmd RemoveFindingCommand, actor string) error {
	const op = "remove finding"
	if err := utils.ValidateStruct(cmd); err != nil {
		return err
	}
	f, err := s.loadFinding(ctx, cmd.FindingID)
	if err != nil {
		return s.fail(op, err, "finding_id", cmd.FindingID)
	}
	if !s.authorizer.Authorize(ctx, authz.LevelGroup, actor, f.GroupName(), authz.ActionRemoveFinding) {
		return s.fail(op, apperrors.NewAccessDeniedError(), "finding_id", cmd.FindingID, "actor", actor)
	}

	now := s.now()
	if err := f.Remove(actor, now); err != nil {
		return s.fail(op, err, "finding_id", cmd.FindingID, "status", f.Status())
	}

	removed := 0
	err = s.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.findings.Update(ctx, f); err != nil {
			return err
		}
		vulns, err := s.vulns.ListByFinding(ctx, f.ID())
		if err != nil {
			return err
		}
		for _, v := range vulns {
			if !v.Remove(cmd.Justification, actor, now) {
				continue
			}
			if err := s.vulns.Save(ctx, v); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return s.fail(op, err, "finding_id", cmd.FindingID)
	}

	s.logger.Infow("finding removed", "finding_id", f.ID(), "vulnerabilities_removed", removed, "actor", actor)
	return nil
}

// DecommissionGroup marks a group as shut down. Its data stays readable
// until MaskFindings anonymizes it.
func (s *Service) DecommissionGroup(ctx context.Context, groupName, actor string) error {
	const op = "decommission group"
	if !s.authorizer.Authorize(ctx, authz.LevelUser, actor, authz.SelfObject, authz.ActionMaskGroup) {
		return s.fail(op, apperrors.NewAccessDeniedError(), "group", groupName, "actor", actor)
	}
	if err := s.groups.SetDecommissioned(ctx, authz.Normalize(groupName)); err != nil {
		return s.fail(op, err, "group", groupName)
	}
	s.logger.Warnw("group decommissioned", "group", groupName, "actor", actor)
	return nil
}

// MaskFindings anonymizes every vulnerability, historic justification and
// comment of a decommissioned group. It returns how many vulnerabilities
// were masked.
func (s *Service) MaskFindings(ctx context.Context, groupName, actor string) (int64, error) {
	const op = "mask findings"
	groupName = authz.Normalize(groupName)
	if !s.authorizer.Authorize(ctx, authz.LevelUser, actor, authz.SelfObject, authz.ActionMaskGroup) {
		return 0, s.fail(op, apperrors.NewAccessDeniedError(), "group", groupName, "actor", actor)
	}

	g, err := s.groups.Get(ctx, groupName)
	if err != nil {
		return 0, s.fail(op, err, "group", groupName)
	}
	if g == nil {
		return 0, s.fail(op, organization.ErrGroupNotFound, "group", groupName)
	}
	if !g.Decommissioned {
		return 0, s.fail(op, organization.ErrGroupNotDecommissioned, "group", groupName)
	}

	masked, err := s.vulns.MaskByGroup(ctx, groupName)
	if err != nil {
		return 0, s.fail(op, err, "group", groupName)
	}
	s.logger.Warnw("group data masked", "group", groupName, "vulnerabilities", masked, "actor", actor)
	return masked, nil
}

func (s *Service) loadFinding(ctx context.Context, id string) (*finding.Finding, error) {
	f, err := s.findings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil || f.Status() == finding.StatusDeleted {
		return nil, finding.ErrFindingNotFound
	}
	return f, nil
}

func (s *Service) activeGroup(ctx context.Context, name string) (*organization.Group, error) {
	g, err := s.groups.Get(ctx, authz.Normalize(name))
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, organization.ErrGroupNotFound
	}
	if g.Decommissioned {
		return nil, organization.ErrGroupDecommissioned
	}
	return g, nil
}

func (s *Service) fail(op string, err error, kv ...any) error {
	if common.IsExpected(err) {
		s.logger.Infow(op+" rejected", append(kv, "error", err)...)
	} else {
		s.logger.Errorw(op+" failed", append(kv, "error", err)...)
	}
	return common.ToAppError(err)
}
