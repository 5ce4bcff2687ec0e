package organization

import (
	"fmt"
	"strings"
	"time"
)

type Organization struct {
	id        string
	name      string
	policies  Policies
	createdAt time.Time
}

func NewOrganization(id, name string, now time.Time) (*Organization, error) {
	if id == "" {
		return nil, fmt.Errorf("organization ID is required")
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("organization name is required")
	}
	return &Organization{
		id:        id,
		name:      strings.ToLower(strings.TrimSpace(name)),
		createdAt: now.UTC(),
	}, nil
}

func ReconstructOrganization(id, name string, policies Policies, createdAt time.Time) *Organization {
	return &Organization{id: id, name: name, policies: policies, createdAt: createdAt}
}

func (o *Organization) ID() string           { return o.id }
func (o *Organization) Name() string         { return o.name }
func (o *Organization) Policies() Policies   { return o.policies }
func (o *Organization) CreatedAt() time.Time { return o.createdAt }

// UpdatePolicies replaces the limits. Changing the acceptance-count ceiling
// restarts counting: the effective date moves to now so earlier acceptances
// no longer count against the new ceiling.
func (o *Organization) UpdatePolicies(next Policies, actor string, now time.Time) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if o.policies.sameLimits(next) {
		return ErrPoliciesUnchanged
	}

	next.NumberAcceptancesEffectiveDate = o.policies.NumberAcceptancesEffectiveDate
	if !eqInt(o.policies.MaxNumberAcceptances, next.MaxNumberAcceptances) {
		t := now.UTC()
		next.NumberAcceptancesEffectiveDate = &t
	}
	next.ModifiedBy = strings.ToLower(actor)
	next.ModifiedDate = now.UTC()
	o.policies = next
	return nil
}

// Group is a customer workspace owned by an organization.
type Group struct {
	Name           string
	OrganizationID string
	Decommissioned bool
}
