// Package handlers exposes the application services over gin.
package handlers

import (
	"github.com/gin-gonic/gin"

	appauthz "vulntrack/internal/application/authz"
	"vulntrack/internal/application/common"
	"vulntrack/internal/shared/constants"
	"vulntrack/internal/shared/errors"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/utils"
)

// subjectFrom returns the authenticated subject, writing a 401 when the
// request carries none.
func subjectFrom(c *gin.Context) (string, bool) {
	subject := c.GetString(constants.ContextKeySubject)
	if subject == "" {
		utils.ErrorResponseWithError(c, errors.NewUnauthorizedError("user not authenticated"))
		return "", false
	}
	return subject, true
}

// bindJSON decodes the body into req, writing a 400 on malformed input.
func bindJSON(c *gin.Context, log logger.Interface, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		log.Infow("invalid request body", "path", c.FullPath(), "error", err)
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid request body", err.Error()))
		return false
	}
	return true
}

// authorize runs guards in order and writes a generic 403 on the first
// failure. The reason is only logged.
func authorize(c *gin.Context, log logger.Interface, req appauthz.GuardRequest, guards ...appauthz.Guard) bool {
	res := appauthz.RunGuards(c.Request.Context(), req, guards...)
	if res.Allowed {
		return true
	}
	deny(c, log, req, res.Reason)
	return false
}

// deny writes the same 403 a failed guard does. A resource that does not
// exist is denied this way too, so ids can not be enumerated.
func deny(c *gin.Context, log logger.Interface, req appauthz.GuardRequest, reason string) {
	log.Infow("access denied",
		"path", c.FullPath(),
		"subject", req.Subject,
		"group", req.Group,
		"organization", req.Organization,
		"reason", reason,
	)
	utils.ErrorResponseWithError(c, errors.NewAccessDeniedError())
}

// respondError maps err to its API response. Rule failures are logged at
// info, everything else at error.
func respondError(c *gin.Context, log logger.Interface, op string, err error) {
	if appErr := errors.GetAppError(err); common.IsExpected(err) || appErr != nil && appErr.Type != errors.ErrorTypeInternal {
		log.Infow(op+" rejected", "path", c.FullPath(), "error", err)
	} else {
		log.Errorw(op+" failed", "path", c.FullPath(), "error", err)
	}
	utils.ErrorResponseWithError(c, common.ToAppError(err))
}
