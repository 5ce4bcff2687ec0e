// Package treatment drives the vulnerability lifecycle: treatments,
// acceptance review, zero-risk disputes, reattacks and scope exclusions.
// Every mutation appends to a history; nothing already stored is rewritten.
package treatment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"vulntrack/internal/application/common"
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/notification"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/domain/shared"
	"vulntrack/internal/domain/vulnerability"
	"vulntrack/internal/shared/biztime"
	"vulntrack/internal/shared/logger"
)

// SystemActor signs entries written by scheduled jobs.
const SystemActor = "system@vulntrack"

// Config selects notification recipients by role and bounds free text.
type Config struct {
	MaxJustificationLength int
	// ManagerRoles receive acceptance requests and reports.
	ManagerRoles []string
	// StakeholderRoles receive every other lifecycle mail.
	StakeholderRoles []string
}

type Repositories struct {
	Vulnerabilities vulnerability.Repository
	Findings        finding.Repository
	Comments        finding.CommentRepository
	Organizations   organization.Repository
	Groups          organization.GroupRepository
}

type Engine struct {
	vulns      vulnerability.Repository
	findings   finding.Repository
	comments   finding.CommentRepository
	orgs       organization.Repository
	groups     organization.GroupRepository
	tx         Transactor
	authorizer Authorizer
	notifier   notification.Notifier
	metrics    Metrics
	cfg        Config
	now        func() time.Time
	logger     logger.Interface
}

type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func NewEngine(
	repos Repositories,
	tx Transactor,
	authorizer Authorizer,
	notifier notification.Notifier,
	cfg Config,
	log logger.Interface,
	opts ...Option,
) *Engine {
	e := &Engine{
		vulns:      repos.Vulnerabilities,
		findings:   repos.Findings,
		comments:   repos.Comments,
		orgs:       repos.Organizations,
		groups:     repos.Groups,
		tx:         tx,
		authorizer: authorizer,
		notifier:   notifier,
		metrics:    nopMetrics{},
		cfg:        cfg,
		now:        biztime.NowUTC,
		logger:     log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// loadVulnerability fetches id and, when findingID is set, checks ownership.
func (e *Engine) loadVulnerability(ctx context.Context, id, findingID string) (*vulnerability.Vulnerability, error) {
	v, err := e.vulns.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, vulnerability.ErrVulnerabilityNotFound
	}
	if findingID != "" && v.FindingID() != findingID {
		return nil, vulnerability.ErrVulnerabilityNotInFind
	}
	return v, nil
}

// loadReleasedVulnerability is loadVulnerability for the customer's view of
// a group, where vulnerabilities of unreleased findings do not exist.
func (e *Engine) loadReleasedVulnerability(ctx context.Context, id, findingID string) (*vulnerability.Vulnerability, error) {
	v, err := e.loadVulnerability(ctx, id, findingID)
	if err != nil {
		return nil, err
	}
	f, err := e.findings.Get(ctx, v.FindingID())
	if err != nil {
		return nil, err
	}
	if f == nil || !f.Status().IsReleased() {
		return nil, vulnerability.ErrVulnerabilityNotFound
	}
	return v, nil
}

// loadBatch loads every id of a finding-scoped batch before anything is
// mutated, so a bad id aborts the whole request.
func (e *Engine) loadBatch(ctx context.Context, findingID string, ids []string) ([]*vulnerability.Vulnerability, error) {
	if len(ids) == 0 {
		return nil, vulnerability.ErrEmptyBatch
	}
	out := make([]*vulnerability.Vulnerability, 0, len(ids))
	for _, id := range ids {
		v, err := e.loadVulnerability(ctx, id, findingID)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (e *Engine) loadFinding(ctx context.Context, id string) (*finding.Finding, error) {
	f, err := e.findings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, finding.ErrFindingNotFound
	}
	return f, nil
}

// loadReleasedFinding hides drafts the way loadReleasedVulnerability does.
func (e *Engine) loadReleasedFinding(ctx context.Context, id string) (*finding.Finding, error) {
	f, err := e.loadFinding(ctx, id)
	if err != nil {
		return nil, err
	}
	if !f.Status().IsReleased() {
		return nil, finding.ErrFindingNotFound
	}
	return f, nil
}

// acceptanceContext gathers the severity and organization limits a
// temporary acceptance is checked against. A group without an organization
// gets the default, unlimited policies.
func (e *Engine) acceptanceContext(ctx context.Context, v *vulnerability.Vulnerability, now time.Time) (vulnerability.AcceptanceContext, error) {
	ac := vulnerability.AcceptanceContext{Now: now}

	f, err := e.loadFinding(ctx, v.FindingID())
	if err != nil {
		return ac, err
	}
	ac.Severity = f.Severity()

	g, err := e.groups.Get(ctx, v.GroupName())
	if err != nil {
		return ac, err
	}
	if g == nil {
		return ac, organization.ErrGroupNotFound
	}
	if g.OrganizationID == "" {
		return ac, nil
	}
	org, err := e.orgs.Get(ctx, g.OrganizationID)
	if err != nil {
		return ac, err
	}
	if org == nil {
		e.logger.Warnw("group points to a missing organization, using default policies",
			"group", g.Name, "organization_id", g.OrganizationID)
		return ac, nil
	}
	ac.Policies = org.Policies()
	return ac, nil
}

// checkJustification applies the configured length bound.
func (e *Engine) checkJustification(text string) error {
	return vulnerability.CheckJustification(text, e.cfg.MaxJustificationLength)
}

// newComment builds a thread entry; it is stored with the histories it
// explains.
func (e *Engine) newComment(findingID string, t finding.CommentType, content, actor string, now time.Time) (*finding.Comment, error) {
	return finding.NewComment(uuid.NewString(), findingID, t, content, actor, now)
}

// commit stores the comment, if any, and every aggregate's pending
// entries in one transaction.
func (e *Engine) commit(ctx context.Context, comment *finding.Comment, vulns []*vulnerability.Vulnerability) error {
	return e.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		if comment != nil {
			if err := e.comments.Add(ctx, comment); err != nil {
				return err
			}
		}
		return e.saveAll(ctx, vulns)
	})
}

func (e *Engine) saveAll(ctx context.Context, vulns []*vulnerability.Vulnerability) error {
	for _, v := range vulns {
		if err := e.vulns.Save(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// fail logs err at the level its kind deserves and converts it for the
// caller. Rule violations are counted by code.
func (e *Engine) fail(op string, err error, kv ...any) error {
	var de *shared.DomainError
	switch {
	case errors.As(err, &de):
		if de.Kind == shared.KindValidation {
			e.metrics.ObserveValidationFailure(de.Code)
		}
		e.logger.Infow(op+" rejected", append(kv, "reason", de.Code)...)
	case common.IsExpected(err):
		e.logger.Infow(op+" rejected", append(kv, "error", err)...)
	default:
		e.logger.Errorw(op+" failed", append(kv, "error", err)...)
	}
	return common.ToAppError(err)
}

func (e *Engine) notify(ctx context.Context, kind notification.Kind, group string, roles, emails []string, payload notification.Payload) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, kind, notification.Selector{Group: group, Roles: roles, Emails: emails}, payload)
}

func (e *Engine) observeTreatments(ts ...vulnerability.Treatment) {
	for _, t := range ts {
		e.metrics.ObserveTransition(string(t.Status))
	}
}

func vulnerabilityIDs(vulns []*vulnerability.Vulnerability) []string {
	ids := make([]string, 0, len(vulns))
	for _, v := range vulns {
		ids = append(ids, v.ID())
	}
	return ids
}

// dedupe keeps the first occurrence of each id.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// formatDate renders a deadline as the business-day date users picked.
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return biztime.FormatDate(*t)
}
