package treatment

import (
	"context"
	"sync"
	"time"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/notification"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/domain/vulnerability"
)

// memVulnerabilityRepository stores copies, so an aggregate mutated but
// never saved leaves the stored histories untouched.
type memVulnerabilityRepository struct {
	mu      sync.Mutex
	items   map[string]*vulnerability.Vulnerability
	saves   int
	SaveErr error
}

func newMemVulnerabilityRepository(vulns ...*vulnerability.Vulnerability) *memVulnerabilityRepository {
	r := &memVulnerabilityRepository{items: map[string]*vulnerability.Vulnerability{}}
	for _, v := range vulns {
		r.items[v.ID()] = snapshot(v)
	}
	return r
}

func snapshot(v *vulnerability.Vulnerability) *vulnerability.Vulnerability {
	return vulnerability.ReconstructVulnerability(
		v.ID(), v.FindingID(), v.GroupName(), v.Root(), v.Type(),
		v.Where(), v.Specific(), v.Hash(), v.Tags(), v.CreatedAt(),
		v.HistoricState(), v.HistoricTreatment(), v.HistoricVerification(), v.HistoricZeroRisk(),
	)
}

func (r *memVulnerabilityRepository) stored(id string) *vulnerability.Vulnerability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

func (r *memVulnerabilityRepository) Get(ctx context.Context, id string) (*vulnerability.Vulnerability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return snapshot(v), nil
}

func (r *memVulnerabilityRepository) Create(ctx context.Context, v *vulnerability.Vulnerability) error {
	return r.Save(ctx, v)
}

func (r *memVulnerabilityRepository) Save(ctx context.Context, v *vulnerability.Vulnerability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.saves++
	r.items[v.ID()] = snapshot(v)
	v.MarkCommitted()
	return nil
}

func (r *memVulnerabilityRepository) ListByFinding(ctx context.Context, findingID string) ([]*vulnerability.Vulnerability, error) {
	return r.filter(func(v *vulnerability.Vulnerability) bool { return v.FindingID() == findingID }), nil
}

func (r *memVulnerabilityRepository) ListByRoot(ctx context.Context, groupName, root string) ([]*vulnerability.Vulnerability, error) {
	return r.filter(func(v *vulnerability.Vulnerability) bool {
		return v.GroupName() == groupName && v.Root() == root
	}), nil
}

func (r *memVulnerabilityRepository) ListExpiredAcceptances(ctx context.Context, now time.Time) ([]*vulnerability.Vulnerability, error) {
	return r.filter(func(v *vulnerability.Vulnerability) bool {
		t := v.CurrentTreatment()
		return t.Status == vulnerability.TreatmentAccepted && t.AcceptedUntil != nil && t.AcceptedUntil.Before(now)
	}), nil
}

func (r *memVulnerabilityRepository) FindByHash(ctx context.Context, hash string) (*vulnerability.Vulnerability, error) {
	found := r.filter(func(v *vulnerability.Vulnerability) bool { return v.Hash() == hash })
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (r *memVulnerabilityRepository) MaskByGroup(ctx context.Context, groupName string) (int64, error) {
	return 0, nil
}

func (r *memVulnerabilityRepository) filter(keep func(*vulnerability.Vulnerability) bool) []*vulnerability.Vulnerability {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*vulnerability.Vulnerability
	for _, v := range r.items {
		if keep(v) {
			out = append(out, snapshot(v))
		}
	}
	return out
}

type mockFindingRepository struct {
	GetFunc func(ctx context.Context, id string) (*finding.Finding, error)
}

func (m *mockFindingRepository) Get(ctx context.Context, id string) (*finding.Finding, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockFindingRepository) Create(ctx context.Context, f *finding.Finding) error { return nil }
func (m *mockFindingRepository) Update(ctx context.Context, f *finding.Finding) error { return nil }
func (m *mockFindingRepository) ListByGroup(ctx context.Context, groupName string) ([]*finding.Finding, error) {
	return nil, nil
}

type memCommentRepository struct {
	comments []*finding.Comment
	AddErr   error
}

func (m *memCommentRepository) Add(ctx context.Context, c *finding.Comment) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.comments = append(m.comments, c)
	return nil
}

func (m *memCommentRepository) ListByFinding(ctx context.Context, findingID string) ([]*finding.Comment, error) {
	var out []*finding.Comment
	for _, c := range m.comments {
		if c.FindingID == findingID {
			out = append(out, c)
		}
	}
	return out, nil
}

type mockOrganizationRepository struct {
	GetFunc func(ctx context.Context, id string) (*organization.Organization, error)
}

func (m *mockOrganizationRepository) Get(ctx context.Context, id string) (*organization.Organization, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockOrganizationRepository) Create(ctx context.Context, org *organization.Organization) error {
	return nil
}

func (m *mockOrganizationRepository) UpdatePolicies(ctx context.Context, org *organization.Organization) error {
	return nil
}

type mockGroupRepository struct {
	GetFunc func(ctx context.Context, name string) (*organization.Group, error)
}

func (m *mockGroupRepository) Get(ctx context.Context, name string) (*organization.Group, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, name)
	}
	return nil, nil
}

func (m *mockGroupRepository) Create(ctx context.Context, group *organization.Group) error {
	return nil
}
func (m *mockGroupRepository) SetDecommissioned(ctx context.Context, name string) error { return nil }

// passthroughTx runs fn directly. Rollback is observable through the
// repositories, which refuse writes when their error toggles are set.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockAuthorizer struct {
	AuthorizeFunc func(level authz.Level, subject, object, action string) bool
}

func (m *mockAuthorizer) Authorize(ctx context.Context, level authz.Level, subject, object, action string) bool {
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(level, subject, object, action)
	}
	return true
}

type sentNotification struct {
	Kind     notification.Kind
	Selector notification.Selector
	Payload  notification.Payload
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, kind notification.Kind, selector notification.Selector, payload notification.Payload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{Kind: kind, Selector: selector, Payload: payload})
}

func (n *recordingNotifier) kinds() []notification.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.Kind, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Kind)
	}
	return out
}

type recordingMetrics struct {
	transitions []string
	failures    []string
}

func (m *recordingMetrics) ObserveTransition(status string) {
	m.transitions = append(m.transitions, status)
}
func (m *recordingMetrics) ObserveValidationFailure(code string) {
	m.failures = append(m.failures, code)
}
