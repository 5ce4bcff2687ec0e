package authz

import (
	"context"
	"sync"
	"time"

	"vulntrack/internal/domain/authz"
)

type memPolicyRepository struct {
	mu       sync.Mutex
	policies map[string]*authz.Policy
	listCall int

	ListBySubjectErr error
	PutErr           error
	DeleteErr        error
}

func newMemPolicyRepository(policies ...*authz.Policy) *memPolicyRepository {
	r := &memPolicyRepository{policies: make(map[string]*authz.Policy)}
	for _, p := range policies {
		r.policies[policyKey(p.Level(), p.Subject(), p.Object())] = p
	}
	return r
}

func policyKey(level authz.Level, subject, object string) string {
	return string(level) + "|" + subject + "|" + object
}

func (r *memPolicyRepository) Get(_ context.Context, level authz.Level, subject, object string) (*authz.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.policies[policyKey(level, subject, object)], nil
}

func (r *memPolicyRepository) ListBySubject(_ context.Context, subject string) ([]*authz.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCall++
	if r.ListBySubjectErr != nil {
		return nil, r.ListBySubjectErr
	}
	var out []*authz.Policy
	for _, p := range r.policies {
		if p.Subject() == subject {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPolicyRepository) ListByObject(_ context.Context, level authz.Level, object string) ([]*authz.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*authz.Policy
	for _, p := range r.policies {
		if p.Level() == level && p.Object() == object {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPolicyRepository) Put(_ context.Context, p *authz.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.PutErr != nil {
		return r.PutErr
	}
	r.policies[policyKey(p.Level(), p.Subject(), p.Object())] = p
	return nil
}

func (r *memPolicyRepository) Delete(_ context.Context, level authz.Level, subject, object string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	delete(r.policies, policyKey(level, subject, object))
	return nil
}

func (r *memPolicyRepository) listCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listCall
}

type mockPolicyCache struct {
	mu      sync.Mutex
	entries map[string][]*authz.Policy
	gens    map[string]int64
	gets    int

	GetErr    error
	DeleteErr error
}

func newMockPolicyCache() *mockPolicyCache {
	return &mockPolicyCache{entries: make(map[string][]*authz.Policy), gens: make(map[string]int64)}
}

func (c *mockPolicyCache) Get(_ context.Context, subject string) ([]*authz.Policy, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.GetErr != nil {
		return nil, false, c.GetErr
	}
	p, ok := c.entries[subject]
	return p, ok, nil
}

func (c *mockPolicyCache) Generation(_ context.Context, subject string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[subject], nil
}

func (c *mockPolicyCache) SetIfGeneration(_ context.Context, subject string, gen int64, policies []*authz.Policy, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[subject] != gen {
		return false, nil
	}
	c.entries[subject] = policies
	return true, nil
}

func (c *mockPolicyCache) cached(subject string) ([]*authz.Policy, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.entries[subject]
	return p, ok
}

func (c *mockPolicyCache) Delete(_ context.Context, subject string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	delete(c.entries, subject)
	c.gens[subject]++
	return nil
}

type mockGroupServiceRepository struct {
	GetFunc func(ctx context.Context, group string) (*authz.GroupServices, error)
	PutFunc func(ctx context.Context, services *authz.GroupServices) error
}

func (m *mockGroupServiceRepository) Get(ctx context.Context, group string) (*authz.GroupServices, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, group)
	}
	return nil, nil
}

func (m *mockGroupServiceRepository) Put(ctx context.Context, services *authz.GroupServices) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, services)
	}
	return nil
}

type mockGroupServiceCache struct {
	mu      sync.Mutex
	entries map[string]*authz.GroupServices
	gens    map[string]int64
}

func newMockGroupServiceCache() *mockGroupServiceCache {
	return &mockGroupServiceCache{entries: make(map[string]*authz.GroupServices), gens: make(map[string]int64)}
}

func (c *mockGroupServiceCache) Get(_ context.Context, group string) (*authz.GroupServices, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.entries[group]
	return s, ok, nil
}

func (c *mockGroupServiceCache) Generation(_ context.Context, group string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[group], nil
}

func (c *mockGroupServiceCache) SetIfGeneration(_ context.Context, group string, gen int64, s *authz.GroupServices, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[group] != gen {
		return false, nil
	}
	c.entries[group] = s
	return true, nil
}

func (c *mockGroupServiceCache) Delete(_ context.Context, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, group)
	c.gens[group]++
	return nil
}

// gatedPolicyRepository parks the first ListBySubject after it has read the
// store, until release is closed.
type gatedPolicyRepository struct {
	*memPolicyRepository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func newGatedPolicyRepository(inner *memPolicyRepository) *gatedPolicyRepository {
	return &gatedPolicyRepository{
		memPolicyRepository: inner,
		loaded:              make(chan struct{}),
		release:             make(chan struct{}),
	}
}

func (r *gatedPolicyRepository) ListBySubject(ctx context.Context, subject string) ([]*authz.Policy, error) {
	policies, err := r.memPolicyRepository.ListBySubject(ctx, subject)
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.loaded)
		<-r.release
	}
	return policies, err
}

type matchEvaluator struct{}

func (matchEvaluator) Compile(_ string, policies []*authz.Policy, roles authz.RoleTable) (Decision, error) {
	return MatchPolicies(policies, roles), nil
}
