package authz

// Group-level actions.
const (
	ActionUpdateTreatment     = "vulnerability:update_treatment"
	ActionApproveAcceptance   = "vulnerability:approve_acceptance"
	ActionRejectAcceptance    = "vulnerability:reject_acceptance"
	ActionRequestZeroRisk     = "vulnerability:request_zero_risk"
	ActionConfirmZeroRisk     = "vulnerability:confirm_zero_risk"
	ActionRejectZeroRisk      = "vulnerability:reject_zero_risk"
	ActionCloseByExclusion    = "vulnerability:close_by_exclusion"
	ActionRequestVerification = "finding:request_verification"
	ActionVerify              = "finding:verify"
	ActionSubmitDraft         = "finding:submit_draft"
	ActionApproveDraft        = "finding:approve_draft"
	ActionRejectDraft         = "finding:reject_draft"
	ActionRemoveFinding       = "finding:remove"
	ActionViewDrafts          = "finding:view_drafts"
	ActionGrantGroupAccess    = "group:grant_access"
)

// Organization-level actions.
const (
	ActionUpdatePolicies          = "organization:update_policies"
	ActionViewPolicies            = "organization:view_policies"
	ActionGrantOrganizationAccess = "organization:grant_access"
)

// User-level actions.
const (
	ActionGrantUserAccess = "user:grant_access"
	ActionManageServices  = "user:manage_services"
	ActionMaskGroup       = "user:mask_group"
	ActionCheckAccess     = "user:check_access"
)

// RoleAdmin is the user-level superuser role.
const RoleAdmin = "admin"
