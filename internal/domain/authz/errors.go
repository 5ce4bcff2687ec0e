package authz

import "vulntrack/internal/domain/shared"

var (
	ErrInvalidRole    = shared.NewValidation("invalid_role", "role is not defined at this level")
	ErrInvalidLevel   = shared.NewValidation("invalid_level", "unknown authorization level")
	ErrInvalidService = shared.NewValidation("invalid_service", "unknown group service")
	ErrInvalidPolicy  = shared.NewValidation("invalid_policy", "policy has an empty identifier")
)
