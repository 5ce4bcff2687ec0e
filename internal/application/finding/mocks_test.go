package finding

import (
	"context"
	"time"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/domain/vulnerability"
)

type mockFindingRepository struct {
	items      map[string]*finding.Finding
	UpdateFunc func(ctx context.Context, f *finding.Finding) error
	updates    int
}

func newMockFindingRepository() *mockFindingRepository {
	return &mockFindingRepository{items: map[string]*finding.Finding{}}
}

func (m *mockFindingRepository) Get(ctx context.Context, id string) (*finding.Finding, error) {
	return m.items[id], nil
}

func (m *mockFindingRepository) Create(ctx context.Context, f *finding.Finding) error {
	m.items[f.ID()] = f
	return nil
}

func (m *mockFindingRepository) Update(ctx context.Context, f *finding.Finding) error {
	if m.UpdateFunc != nil {
		if err := m.UpdateFunc(ctx, f); err != nil {
			return err
		}
	}
	m.updates++
	m.items[f.ID()] = f
	return nil
}

func (m *mockFindingRepository) ListByGroup(ctx context.Context, groupName string) ([]*finding.Finding, error) {
	var out []*finding.Finding
	for _, f := range m.items {
		if f.GroupName() == groupName {
			out = append(out, f)
		}
	}
	return out, nil
}

type mockVulnerabilityRepository struct {
	items           map[string]*vulnerability.Vulnerability
	SaveFunc        func(ctx context.Context, v *vulnerability.Vulnerability) error
	MaskByGroupFunc func(ctx context.Context, groupName string) (int64, error)
}

func newMockVulnerabilityRepository() *mockVulnerabilityRepository {
	return &mockVulnerabilityRepository{items: map[string]*vulnerability.Vulnerability{}}
}

func (m *mockVulnerabilityRepository) Get(ctx context.Context, id string) (*vulnerability.Vulnerability, error) {
	return m.items[id], nil
}

func (m *mockVulnerabilityRepository) Create(ctx context.Context, v *vulnerability.Vulnerability) error {
	m.items[v.ID()] = v
	v.MarkCommitted()
	return nil
}

func (m *mockVulnerabilityRepository) Save(ctx context.Context, v *vulnerability.Vulnerability) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, v); err != nil {
			return err
		}
	}
	m.items[v.ID()] = v
	v.MarkCommitted()
	return nil
}

func (m *mockVulnerabilityRepository) ListByFinding(ctx context.Context, findingID string) ([]*vulnerability.Vulnerability, error) {
	var out []*vulnerability.Vulnerability
	for _, v := range m.items {
		if v.FindingID() == findingID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockVulnerabilityRepository) ListByRoot(ctx context.Context, groupName, root string) ([]*vulnerability.Vulnerability, error) {
	return nil, nil
}

func (m *mockVulnerabilityRepository) ListExpiredAcceptances(ctx context.Context, now time.Time) ([]*vulnerability.Vulnerability, error) {
	return nil, nil
}

func (m *mockVulnerabilityRepository) FindByHash(ctx context.Context, hash string) (*vulnerability.Vulnerability, error) {
	for _, v := range m.items {
		if v.Hash() == hash {
			return v, nil
		}
	}
	return nil, nil
}

func (m *mockVulnerabilityRepository) MaskByGroup(ctx context.Context, groupName string) (int64, error) {
	if m.MaskByGroupFunc != nil {
		return m.MaskByGroupFunc(ctx, groupName)
	}
	return 0, nil
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

func (m *mockGroupRepository) SetDecommissioned(ctx context.Context, name string) error {
	g, ok := m.groups[name]
	if !ok {
		return organization.ErrGroupNotFound
	}
	g.Decommissioned = true
	return nil
}

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
