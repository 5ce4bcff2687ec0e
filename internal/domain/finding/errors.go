package finding

import "vulntrack/internal/domain/shared"

var (
	ErrFindingNotFound    = shared.NewNotFound("finding_not_found", "finding not found")
	ErrIncompleteDraft    = shared.NewValidation("incomplete_draft", "draft is missing required fields")
	ErrInvalidTransition  = shared.NewValidation("invalid_finding_transition", "finding cannot move to the requested state")
	ErrInvalidSeverity    = shared.NewValidation("invalid_severity", "severity must be within 0.0 and 10.0")
	ErrInvalidCommentType = shared.NewValidation("invalid_comment_type", "unknown comment type")
	ErrEmptyComment       = shared.NewValidation("empty_comment", "comment content is required")
)
