package handlers

import (
	"time"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/organization"
	"vulntrack/internal/domain/vulnerability"
)

type TreatmentResponse struct {
	ID               string     `json:"id"`
	Status           string     `json:"status"`
	AcceptanceStatus string     `json:"acceptance_status,omitempty"`
	AcceptedUntil    *time.Time `json:"accepted_until,omitempty"`
	Justification    string     `json:"justification,omitempty"`
	Assigned         string     `json:"assigned,omitempty"`
	ModifiedBy       string     `json:"modified_by"`
	ModifiedDate     time.Time  `json:"modified_date"`
}

func toTreatmentResponse(t vulnerability.Treatment) TreatmentResponse {
	return TreatmentResponse{
		ID:               t.ID,
		Status:           string(t.Status),
		AcceptanceStatus: string(t.AcceptanceStatus),
		AcceptedUntil:    t.AcceptedUntil,
		Justification:    t.Justification,
		Assigned:         t.Assigned,
		ModifiedBy:       t.ModifiedBy,
		ModifiedDate:     t.ModifiedDate,
	}
}

type VulnerabilityResponse struct {
	ID        string            `json:"id"`
	FindingID string            `json:"finding_id"`
	GroupName string            `json:"group_name"`
	Root      string            `json:"root,omitempty"`
	Type      string            `json:"type"`
	Where     string            `json:"where"`
	Specific  string            `json:"specific,omitempty"`
	Hash      string            `json:"hash"`
	State     string            `json:"state"`
	Treatment TreatmentResponse `json:"treatment"`
}

func toVulnerabilityResponse(v *vulnerability.Vulnerability) VulnerabilityResponse {
	return VulnerabilityResponse{
		ID:        v.ID(),
		FindingID: v.FindingID(),
		GroupName: v.GroupName(),
		Root:      v.Root(),
		Type:      string(v.Type()),
		Where:     v.Where(),
		Specific:  v.Specific(),
		Hash:      v.Hash(),
		State:     string(v.State()),
		Treatment: toTreatmentResponse(v.CurrentTreatment()),
	}
}

type FindingResponse struct {
	ID             string    `json:"id"`
	GroupName      string    `json:"group_name"`
	Title          string    `json:"title"`
	Severity       float64   `json:"severity"`
	Status         string    `json:"status"`
	Description    string    `json:"description,omitempty"`
	Threat         string    `json:"threat,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
	ModifiedBy     string    `json:"modified_by,omitempty"`
	ModifiedDate   time.Time `json:"modified_date"`
}

func toFindingResponse(f *finding.Finding) FindingResponse {
	return FindingResponse{
		ID:             f.ID(),
		GroupName:      f.GroupName(),
		Title:          f.Title(),
		Severity:       f.Severity(),
		Status:         string(f.Status()),
		Description:    f.Description(),
		Threat:         f.Threat(),
		Recommendation: f.Recommendation(),
		ModifiedBy:     f.ModifiedBy(),
		ModifiedDate:   f.ModifiedDate(),
	}
}

type PoliciesResponse struct {
	MaxAcceptanceDays              *int       `json:"max_acceptance_days"`
	MinAcceptanceSeverity          *float64   `json:"min_acceptance_severity"`
	MaxAcceptanceSeverity          *float64   `json:"max_acceptance_severity"`
	MaxNumberAcceptances           *int       `json:"max_number_acceptances"`
	NumberAcceptancesEffectiveDate *time.Time `json:"number_acceptances_effective_date,omitempty"`
	ModifiedBy                     string     `json:"modified_by,omitempty"`
	ModifiedDate                   time.Time  `json:"modified_date"`
}

func toPoliciesResponse(p organization.Policies) PoliciesResponse {
	return PoliciesResponse{
		MaxAcceptanceDays:              p.MaxAcceptanceDays,
		MinAcceptanceSeverity:          p.MinAcceptanceSeverity,
		MaxAcceptanceSeverity:          p.MaxAcceptanceSeverity,
		MaxNumberAcceptances:           p.MaxNumberAcceptances,
		NumberAcceptancesEffectiveDate: p.NumberAcceptancesEffectiveDate,
		ModifiedBy:                     p.ModifiedBy,
		ModifiedDate:                   p.ModifiedDate,
	}
}

type OrganizationResponse struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Policies  PoliciesResponse `json:"policies"`
	CreatedAt time.Time        `json:"created_at"`
}

func toOrganizationResponse(o *organization.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:        o.ID(),
		Name:      o.Name(),
		Policies:  toPoliciesResponse(o.Policies()),
		CreatedAt: o.CreatedAt(),
	}
}

type GroupResponse struct {
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id"`
	Decommissioned bool   `json:"decommissioned"`
}

func toGroupResponse(g *organization.Group) GroupResponse {
	return GroupResponse{Name: g.Name, OrganizationID: g.OrganizationID, Decommissioned: g.Decommissioned}
}

type PolicyResponse struct {
	Level        string    `json:"level"`
	Subject      string    `json:"subject"`
	Object       string    `json:"object"`
	Role         string    `json:"role"`
	ModifiedBy   string    `json:"modified_by,omitempty"`
	ModifiedDate time.Time `json:"modified_date"`
}

func toPolicyResponses(policies []*authz.Policy) []PolicyResponse {
	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, PolicyResponse{
			Level:        string(p.Level()),
			Subject:      p.Subject(),
			Object:       p.Object(),
			Role:         p.Role(),
			ModifiedBy:   p.ModifiedBy(),
			ModifiedDate: p.ModifiedDate(),
		})
	}
	return out
}
