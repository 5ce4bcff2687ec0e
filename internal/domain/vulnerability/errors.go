package vulnerability

import "vulntrack/internal/domain/shared"

var (
	ErrVulnerabilityNotFound  = shared.NewNotFound("vulnerability_not_found", "vulnerability not found")
	ErrVulnerabilityNotInFind = shared.NewNotFound("vulnerability_not_in_finding", "vulnerability does not belong to this finding")
	ErrVulnerabilityNotOpen   = shared.NewValidation("vulnerability_not_open", "vulnerability is closed or deleted")

	ErrInvalidTreatmentStatus   = shared.NewValidation("invalid_treatment_status", "unknown treatment status")
	ErrInvalidJustification     = shared.NewValidation("invalid_justification", "justification is empty or too long")
	ErrAcceptanceDateRequired   = shared.NewValidation("invalid_acceptance_date", "accepted_until is required for a temporary acceptance")
	ErrInvalidAcceptanceDays    = shared.NewValidation("invalid_acceptance_days", "accepted_until is in the past or beyond the organization's max acceptance days")
	ErrInvalidAcceptanceSev     = shared.NewValidation("invalid_acceptance_severity", "finding severity is outside the organization's acceptance range")
	ErrInvalidNumberAcceptances = shared.NewValidation("invalid_number_acceptances", "vulnerability reached the organization's max number of acceptances")
	ErrSameValues               = shared.NewValidation("same_values", "treatment is identical to the current one")
	ErrAcceptanceNotRequested   = shared.NewValidation("acceptance_not_requested", "there is no pending acceptance to approve or reject")

	ErrZeroRiskAlreadyRequested = shared.NewValidation("zero_risk_already_requested", "zero risk was already requested")
	ErrZeroRiskAlreadyConfirmed = shared.NewValidation("zero_risk_already_confirmed", "zero risk was already confirmed")
	ErrZeroRiskNotRequested     = shared.NewValidation("zero_risk_not_requested", "zero risk was not requested")

	ErrVerificationAlreadyRequested = shared.NewValidation("verification_already_requested", "verification was already requested")
	ErrVerificationNotRequested     = shared.NewValidation("verification_not_requested", "verification was not requested")

	ErrEmptyBatch              = shared.NewValidation("empty_vulnerability_list", "at least one vulnerability is required")
	ErrAmbiguousVerification   = shared.NewValidation("vulnerability_in_open_and_closed", "a vulnerability cannot be reported both open and closed")
	ErrInvalidModifiedDate     = shared.NewValidation("invalid_modified_date", "modified date cannot be in the future")
	ErrInvalidExclusionPattern = shared.NewValidation("invalid_exclusion_pattern", "exclusion pattern is not a valid glob")
)
