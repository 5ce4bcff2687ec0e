package handlers

import (
	"context"
	"sync"
	"time"

	appauthz "vulntrack/internal/application/authz"
	appfinding "vulntrack/internal/application/finding"
	apporganization "vulntrack/internal/application/organization"
	"vulntrack/internal/application/treatment"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/domain/vulnerability"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// fakeGuards records every guard evaluation and denies the names listed
// in deny.
type fakeGuards struct {
	mu    sync.Mutex
	deny  map[string]bool
	calls []string
	seen  []appauthz.GuardRequest
}

func newFakeGuards(deny ...string) *fakeGuards {
	g := &fakeGuards{deny: make(map[string]bool)}
	for _, d := range deny {
		g.deny[d] = true
	}
	return g
}

func (g *fakeGuards) guard(name string) appauthz.Guard {
	return func(_ context.Context, req appauthz.GuardRequest) appauthz.GuardResult {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.calls = append(g.calls, name)
		g.seen = append(g.seen, req)
		if g.deny[name] {
			return appauthz.GuardResult{Reason: name + " denied"}
		}
		return appauthz.GuardResult{Allowed: true}
	}
}

func (g *fakeGuards) RequireLogin() appauthz.Guard { return g.guard("login") }

func (g *fakeGuards) RequireLevelAction(level authz.Level, action string) appauthz.Guard {
	return g.guard(string(level) + ":" + action)
}

func (g *fakeGuards) RequireService(svc authz.Service) appauthz.Guard {
	return g.guard("service:" + string(svc))
}

func (g *fakeGuards) RequireStaff() appauthz.Guard { return g.guard("staff") }

func (g *fakeGuards) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

func (g *fakeGuards) LastRequest() appauthz.GuardRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.seen) == 0 {
		return appauthz.GuardRequest{}
	}
	return g.seen[len(g.seen)-1]
}

type mockTreatmentEngine struct {
	ProposeTreatmentFunc    func(ctx context.Context, cmd treatment.ProposeTreatmentCommand, actor string) (vulnerability.Treatment, error)
	ApproveAcceptanceFunc   func(ctx context.Context, cmd treatment.ReviewAcceptanceCommand, actor string) (vulnerability.Treatment, error)
	RejectAcceptanceFunc    func(ctx context.Context, cmd treatment.ReviewAcceptanceCommand, actor string) (vulnerability.Treatment, error)
	RequestZeroRiskFunc     func(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error
	ConfirmZeroRiskFunc     func(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error
	RejectZeroRiskFunc      func(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error
	RemoveVulnerabilityFunc func(ctx context.Context, cmd treatment.RemoveVulnerabilityCommand, actor string) error
	RequestVerificationFunc func(ctx context.Context, cmd treatment.RequestVerificationCommand, actor string) error
	VerifyFunc              func(ctx context.Context, cmd treatment.VerifyCommand, actor string) error
	CloseByExclusionFunc    func(ctx context.Context, cmd treatment.CloseByExclusionCommand, actor string) (int, error)
}

func (m *mockTreatmentEngine) ProposeTreatment(ctx context.Context, cmd treatment.ProposeTreatmentCommand, actor string) (vulnerability.Treatment, error) {
	if m.ProposeTreatmentFunc != nil {
		return m.ProposeTreatmentFunc(ctx, cmd, actor)
	}
	return vulnerability.Treatment{}, nil
}

func (m *mockTreatmentEngine) ApproveAcceptance(ctx context.Context, cmd treatment.ReviewAcceptanceCommand, actor string) (vulnerability.Treatment, error) {
	if m.ApproveAcceptanceFunc != nil {
		return m.ApproveAcceptanceFunc(ctx, cmd, actor)
	}
	return vulnerability.Treatment{}, nil
}

func (m *mockTreatmentEngine) RejectAcceptance(ctx context.Context, cmd treatment.ReviewAcceptanceCommand, actor string) (vulnerability.Treatment, error) {
	if m.RejectAcceptanceFunc != nil {
		return m.RejectAcceptanceFunc(ctx, cmd, actor)
	}
	return vulnerability.Treatment{}, nil
}

func (m *mockTreatmentEngine) RequestZeroRisk(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error {
	if m.RequestZeroRiskFunc != nil {
		return m.RequestZeroRiskFunc(ctx, cmd, actor)
	}
	return nil
}

func (m *mockTreatmentEngine) ConfirmZeroRisk(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error {
	if m.ConfirmZeroRiskFunc != nil {
		return m.ConfirmZeroRiskFunc(ctx, cmd, actor)
	}
	return nil
}

func (m *mockTreatmentEngine) RejectZeroRisk(ctx context.Context, cmd treatment.ZeroRiskCommand, actor string) error {
	if m.RejectZeroRiskFunc != nil {
		return m.RejectZeroRiskFunc(ctx, cmd, actor)
	}
	return nil
}

func (m *mockTreatmentEngine) RemoveVulnerability(ctx context.Context, cmd treatment.RemoveVulnerabilityCommand, actor string) error {
	if m.RemoveVulnerabilityFunc != nil {
		return m.RemoveVulnerabilityFunc(ctx, cmd, actor)
	}
	return nil
}

func (m *mockTreatmentEngine) RequestVerification(ctx context.Context, cmd treatment.RequestVerificationCommand, actor string) error {
	if m.RequestVerificationFunc != nil {
		return m.RequestVerificationFunc(ctx, cmd, actor)
	}
	return nil
}

func (m *mockTreatmentEngine) Verify(ctx context.Context, cmd treatment.VerifyCommand, actor string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, cmd, actor)
	}
	return nil
}

func (m *mockTreatmentEngine) CloseByExclusion(ctx context.Context, cmd treatment.CloseByExclusionCommand, actor string) (int, error) {
	if m.CloseByExclusionFunc != nil {
		return m.CloseByExclusionFunc(ctx, cmd, actor)
	}
	return 0, nil
}

type mockVulnerabilityLookup struct {
	vulns map[string]*vulnerability.Vulnerability
	err   error
	calls int
}

func (m *mockVulnerabilityLookup) Get(_ context.Context, id string) (*vulnerability.Vulnerability, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vulns[id], nil
}

type mockFindingLookup struct {
	findings map[string]*finding.Finding
	err      error
	calls    int
}

func (m *mockFindingLookup) Get(_ context.Context, id string) (*finding.Finding, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.findings[id], nil
}

type mockFindingService struct {
	CreateDraftFunc         func(ctx context.Context, cmd appfinding.CreateDraftCommand, actor string) (*finding.Finding, error)
	ReportVulnerabilityFunc func(ctx context.Context, cmd appfinding.ReportVulnerabilityCommand, actor string) (*vulnerability.Vulnerability, bool, error)
	SubmitDraftFunc         func(ctx context.Context, findingID, actor string) (*finding.Finding, error)
	ApproveDraftFunc        func(ctx context.Context, findingID, actor string) (*finding.Finding, error)
	RejectDraftFunc         func(ctx context.Context, findingID, actor string) (*finding.Finding, error)
	RemoveFindingFunc       func(ctx context.Context, cmd appfinding.RemoveFindingCommand, actor string) error
	DecommissionGroupFunc   func(ctx context.Context, groupName, actor string) error
	MaskFindingsFunc        func(ctx context.Context, groupName, actor string) (int64, error)
}

func (m *mockFindingService) CreateDraft(ctx context.Context, cmd appfinding.CreateDraftCommand, actor string) (*finding.Finding, error) {
	return m.CreateDraftFunc(ctx, cmd, actor)
}

func (m *mockFindingService) ReportVulnerability(ctx context.Context, cmd appfinding.ReportVulnerabilityCommand, actor string) (*vulnerability.Vulnerability, bool, error) {
	return m.ReportVulnerabilityFunc(ctx, cmd, actor)
}

func (m *mockFindingService) SubmitDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error) {
	return m.SubmitDraftFunc(ctx, findingID, actor)
}

func (m *mockFindingService) ApproveDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error) {
	return m.ApproveDraftFunc(ctx, findingID, actor)
}

func (m *mockFindingService) RejectDraft(ctx context.Context, findingID, actor string) (*finding.Finding, error) {
	return m.RejectDraftFunc(ctx, findingID, actor)
}

func (m *mockFindingService) RemoveFinding(ctx context.Context, cmd appfinding.RemoveFindingCommand, actor string) error {
	return m.RemoveFindingFunc(ctx, cmd, actor)
}

func (m *mockFindingService) DecommissionGroup(ctx context.Context, groupName, actor string) error {
	return m.DecommissionGroupFunc(ctx, groupName, actor)
}

func (m *mockFindingService) MaskFindings(ctx context.Context, groupName, actor string) (int64, error) {
	return m.MaskFindingsFunc(ctx, groupName, actor)
}

type mockOrganizationService struct {
	CreateOrganizationFunc func(ctx context.Context, cmd apporganization.CreateOrganizationCommand, actor string) (*organization.Organization, error)
	CreateGroupFunc        func(ctx context.Context, cmd apporganization.CreateGroupCommand, actor string) (*organization.Group, error)
	GetPoliciesFunc        func(ctx context.Context, orgID, actor string) (organization.Policies, error)
	UpdatePoliciesFunc     func(ctx context.Context, cmd apporganization.UpdatePoliciesCommand, actor string) (organization.Policies, error)
}

func (m *mockOrganizationService) CreateOrganization(ctx context.Context, cmd apporganization.CreateOrganizationCommand, actor string) (*organization.Organization, error) {
	return m.CreateOrganizationFunc(ctx, cmd, actor)
}

func (m *mockOrganizationService) CreateGroup(ctx context.Context, cmd apporganization.CreateGroupCommand, actor string) (*organization.Group, error) {
	return m.CreateGroupFunc(ctx, cmd, actor)
}

func (m *mockOrganizationService) GetPolicies(ctx context.Context, orgID, actor string) (organization.Policies, error) {
	return m.GetPoliciesFunc(ctx, orgID, actor)
}

func (m *mockOrganizationService) UpdatePolicies(ctx context.Context, cmd apporganization.UpdatePoliciesCommand, actor string) (organization.Policies, error) {
	return m.UpdatePoliciesFunc(ctx, cmd, actor)
}

type mockAuthzService struct {
	AuthorizeFunc     func(ctx context.Context, level authz.Level, subject, object, action string) bool
	GrantFunc         func(ctx context.Context, level authz.Level, subject, object, role, actor string) (bool, error)
	RevokeFunc        func(ctx context.Context, level authz.Level, subject, object, actor string) (bool, error)
	PoliciesFunc      func(ctx context.Context, subject string) ([]*authz.Policy, error)
	GrantServiceFunc  func(ctx context.Context, group string, svc authz.Service, actor string) error
	RevokeServiceFunc func(ctx context.Context, group string, svc authz.Service, actor string) error
}

func (m *mockAuthzService) Authorize(ctx context.Context, level authz.Level, subject, object, action string) bool {
	return m.AuthorizeFunc(ctx, level, subject, object, action)
}

func (m *mockAuthzService) Grant(ctx context.Context, level authz.Level, subject, object, role, actor string) (bool, error) {
	return m.GrantFunc(ctx, level, subject, object, role, actor)
}

func (m *mockAuthzService) Revoke(ctx context.Context, level authz.Level, subject, object, actor string) (bool, error) {
	return m.RevokeFunc(ctx, level, subject, object, actor)
}

func (m *mockAuthzService) Policies(ctx context.Context, subject string) ([]*authz.Policy, error) {
	return m.PoliciesFunc(ctx, subject)
}

func (m *mockAuthzService) GrantService(ctx context.Context, group string, svc authz.Service, actor string) error {
	return m.GrantServiceFunc(ctx, group, svc, actor)
}

func (m *mockAuthzService) RevokeService(ctx context.Context, group string, svc authz.Service, actor string) error {
	return m.RevokeServiceFunc(ctx, group, svc, actor)
}

func newTestVulnerability(id, findingID, group string) *vulnerability.Vulnerability {
	v, err := vulnerability.NewVulnerability(id, findingID, group, "backend", vulnerability.TypeLines,
		"src/main.go", "42", vulnerability.SourceAnalyst, "hacker@vulntrack.io", testNow)
	if err != nil {
		panic(err)
	}
	return v
}

func newTestFinding(id, group string) *finding.Finding {
	f, err := finding.NewFinding(id, group, "SQL injection", 7.5, "hacker@vulntrack.io", testNow)
	if err != nil {
		panic(err)
	}
	return f
}
