package organization

import (
	"time"

	"vulntrack/internal/domain/shared"
)

const (
	DefaultMinAcceptanceSeverity = 0.0
	DefaultMaxAcceptanceSeverity = 10.0
)

// Policies are the per-organization bounds on risk acceptance. Nil limits
// mean "no limit"; nil severities fall back to the default range.
type Policies struct {
	MaxAcceptanceDays              *int
	MinAcceptanceSeverity          *float64
	MaxAcceptanceSeverity          *float64
	MaxNumberAcceptances           *int
	NumberAcceptancesEffectiveDate *time.Time
	ModifiedBy                     string
	ModifiedDate                   time.Time
}

var (
	ErrInvalidAcceptanceDays    = shared.NewValidation("invalid_max_acceptance_days", "max acceptance days must not be negative")
	ErrInvalidSeverityRange     = shared.NewValidation("invalid_severity_range", "acceptance severities must be within 0.0 and 10.0 and min must not exceed max")
	ErrInvalidNumberAcceptances = shared.NewValidation("invalid_max_number_acceptances", "max number of acceptances must not be negative")
	ErrOrganizationNotFound     = shared.NewNotFound("organization_not_found", "organization not found")
	ErrGroupNotFound            = shared.NewNotFound("group_not_found", "group not found")
	ErrGroupExists              = shared.NewConflict("group_exists", "group already exists")
	ErrGroupNotDecommissioned   = shared.NewValidation("group_not_decommissioned", "only a decommissioned group can be masked")
	ErrGroupDecommissioned      = shared.NewValidation("group_decommissioned", "group is decommissioned")
	ErrPoliciesUnchanged        = shared.NewValidation("same_values", "policies are unchanged")
)

// SeverityRange returns the effective [min, max] acceptance severity.
func (p Policies) SeverityRange() (float64, float64) {
	lo, hi := DefaultMinAcceptanceSeverity, DefaultMaxAcceptanceSeverity
	if p.MinAcceptanceSeverity != nil {
		lo = *p.MinAcceptanceSeverity
	}
	if p.MaxAcceptanceSeverity != nil {
		hi = *p.MaxAcceptanceSeverity
	}
	return lo, hi
}

// Validate checks the limits are internally consistent.
func (p Policies) Validate() error {
	if p.MaxAcceptanceDays != nil && *p.MaxAcceptanceDays < 0 {
		return ErrInvalidAcceptanceDays
	}
	lo, hi := p.SeverityRange()
	if lo < DefaultMinAcceptanceSeverity || hi > DefaultMaxAcceptanceSeverity || lo > hi {
		return ErrInvalidSeverityRange
	}
	if p.MaxNumberAcceptances != nil && *p.MaxNumberAcceptances < 0 {
		return ErrInvalidNumberAcceptances
	}
	return nil
}

func (p Policies) sameLimits(o Policies) bool {
	return eqInt(p.MaxAcceptanceDays, o.MaxAcceptanceDays) &&
		eqFloat(p.MinAcceptanceSeverity, o.MinAcceptanceSeverity) &&
		eqFloat(p.MaxAcceptanceSeverity, o.MaxAcceptanceSeverity) &&
		eqInt(p.MaxNumberAcceptances, o.MaxNumberAcceptances)
}

func eqInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func eqFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
