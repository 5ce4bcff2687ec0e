package common

import (
	"errors"

	"vulntrack/internal/domain/shared"
	apperrors "vulntrack/internal/shared/errors"
)

// ToAppError converts a domain rule failure into the matching AppError,
// tagged with the rule's code. Errors that already are AppErrors pass
// through; anything else becomes a generic internal error.
func ToAppError(err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}

	var de *shared.DomainError
	if !errors.As(err, &de) {
		return apperrors.NewInternalError("internal error")
	}

	switch de.Kind {
	case shared.KindValidation:
		return apperrors.NewValidationError(de.Message).WithReason(de.Code)
	case shared.KindNotFound:
		return apperrors.NewNotFoundError(de.Message).WithReason(de.Code)
	case shared.KindConflict:
		return apperrors.NewConflictError(de.Message).WithReason(de.Code)
	default:
		return apperrors.NewInternalError("internal error")
	}
}

// IsExpected reports whether err is a user-facing rule failure that should
// be logged below error level.
func IsExpected(err error) bool {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return true
	}
	return apperrors.IsValidationError(err) || apperrors.IsNotFoundError(err) || apperrors.IsForbiddenError(err)
}
