package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP Headers
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Context keys set by the auth middleware
	ContextKeySubject   = "subject"
	ContextKeyRequestID = "request_id"

	// Table names
	TablePolicies               = "policies"
	TableGroups                 = "customer_groups"
	TableGroupServices          = "group_services"
	TableOrganizations          = "organizations"
	TableFindings               = "findings"
	TableVulnerabilities        = "vulnerabilities"
	TableVulnerabilityStates    = "vulnerability_states"
	TableVulnerabilityTreatment = "vulnerability_treatments"
	TableVulnerabilityVerify    = "vulnerability_verifications"
	TableVulnerabilityZeroRisk  = "vulnerability_zero_risks"
	TableFindingComments        = "finding_comments"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgAccessDenied        = "access denied"
)
