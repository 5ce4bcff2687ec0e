package mappers

import (
	"time"

	"vulntrack/internal/domain/organization"
	"vulntrack/internal/infrastructure/persistence/models"
)

func OrganizationToModel(o *organization.Organization) *models.OrganizationModel {
	p := o.Policies()
	m := &models.OrganizationModel{
		ID:                             o.ID(),
		Name:                           o.Name(),
		MaxAcceptanceDays:              p.MaxAcceptanceDays,
		MinAcceptanceSeverity:          p.MinAcceptanceSeverity,
		MaxAcceptanceSeverity:          p.MaxAcceptanceSeverity,
		MaxNumberAcceptances:           p.MaxNumberAcceptances,
		NumberAcceptancesEffectiveDate: utcPtr(p.NumberAcceptancesEffectiveDate),
		PoliciesModifiedBy:             p.ModifiedBy,
		CreatedAt:                      o.CreatedAt().UTC(),
	}
	if !p.ModifiedDate.IsZero() {
		d := p.ModifiedDate.UTC()
		m.PoliciesModifiedDate = &d
	}
	return m
}

func OrganizationToDomain(m *models.OrganizationModel) *organization.Organization {
	p := organization.Policies{
		MaxAcceptanceDays:              m.MaxAcceptanceDays,
		MinAcceptanceSeverity:          m.MinAcceptanceSeverity,
		MaxAcceptanceSeverity:          m.MaxAcceptanceSeverity,
		MaxNumberAcceptances:           m.MaxNumberAcceptances,
		NumberAcceptancesEffectiveDate: utcPtr(m.NumberAcceptancesEffectiveDate),
		ModifiedBy:                     m.PoliciesModifiedBy,
	}
	if m.PoliciesModifiedDate != nil {
		p.ModifiedDate = m.PoliciesModifiedDate.UTC()
	}
	return organization.ReconstructOrganization(m.ID, m.Name, p, m.CreatedAt.UTC())
}

func GroupToModel(g *organization.Group, now time.Time) *models.GroupModel {
	return &models.GroupModel{
		Name:           g.Name,
		OrganizationID: g.OrganizationID,
		Decommissioned: g.Decommissioned,
		CreatedAt:      now.UTC(),
	}
}

func GroupToDomain(m *models.GroupModel) *organization.Group {
	return &organization.Group{
		Name:           m.Name,
		OrganizationID: m.OrganizationID,
		Decommissioned: m.Decommissioned,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
