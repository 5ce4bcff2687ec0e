package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	appauthz "vulntrack/internal/application/authz"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/shared/errors"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/utils"
)

type GrantRequest struct {
	Level   string `json:"level" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Object  string `json:"object"`
	Role    string `json:"role" binding:"required"`
}

type RevokeRequest struct {
	Level   string `json:"level" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	Object  string `json:"object"`
}

type CheckRequest struct {
	Level   string `json:"level" binding:"required"`
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action" binding:"required"`
}

// grantActions is the action a caller needs to write grants at a level.
var grantActions = map[authz.Level]string{
	authz.LevelUser:         authz.ActionGrantUserAccess,
	authz.LevelGroup:        authz.ActionGrantGroupAccess,
	authz.LevelOrganization: authz.ActionGrantOrganizationAccess,
}

// AuthzHandler exposes grant management, decision checks and group
// service entitlements.
type AuthzHandler struct {
	service authzService
	guards  guardFactory
	logger  logger.Interface
}

func NewAuthzHandler(service authzService, guards guardFactory, log logger.Interface) *AuthzHandler {
	return &AuthzHandler{service: service, guards: guards, logger: log}
}

func parseLevel(c *gin.Context, raw string) (authz.Level, bool) {
	level, err := authz.ParseLevel(raw)
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid level", raw))
		return "", false
	}
	return level, true
}

// guardRequest places object where the level's guards look for it.
func guardRequest(subject string, level authz.Level, object string) appauthz.GuardRequest {
	req := appauthz.GuardRequest{Subject: subject}
	switch level {
	case authz.LevelGroup:
		req.Group = object
	case authz.LevelOrganization:
		req.Organization = object
	}
	return req
}

func (h *AuthzHandler) canGrant(c *gin.Context, actor string, level authz.Level, object string) bool {
	return authorize(c, h.logger, guardRequest(actor, level, object),
		h.guards.RequireLogin(),
		h.guards.RequireLevelAction(level, grantActions[level]),
	)
}

// Grant handles POST /authz/grants
func (h *AuthzHandler) Grant(c *gin.Context) {
	actor, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req GrantRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	level, ok := parseLevel(c, req.Level)
	if !ok || !h.canGrant(c, actor, level, req.Object) {
		return
	}

	changed, err := h.service.Grant(c.Request.Context(), level, req.Subject, req.Object, req.Role, actor)
	if err != nil {
		respondError(c, h.logger, "grant", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "grant stored", gin.H{"changed": changed})
}

// Revoke handles DELETE /authz/grants
func (h *AuthzHandler) Revoke(c *gin.Context) {
	actor, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req RevokeRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	level, ok := parseLevel(c, req.Level)
	if !ok || !h.canGrant(c, actor, level, req.Object) {
		return
	}

	changed, err := h.service.Revoke(c.Request.Context(), level, req.Subject, req.Object, actor)
	if err != nil {
		respondError(c, h.logger, "revoke", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "grant revoked", gin.H{"changed": changed})
}

// Check handles POST /authz/check. Checking another subject needs
// user-level check rights.
func (h *AuthzHandler) Check(c *gin.Context) {
	actor, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req CheckRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	level, ok := parseLevel(c, req.Level)
	if !ok {
		return
	}

	subject := authz.Normalize(req.Subject)
	if subject != "" && subject != authz.Normalize(actor) {
		if !authorize(c, h.logger, appauthz.GuardRequest{Subject: actor},
			h.guards.RequireLevelAction(authz.LevelUser, authz.ActionCheckAccess),
		) {
			return
		}
	} else {
		subject = actor
	}

	object := req.Object
	if level == authz.LevelUser {
		object = authz.SelfObject
	}
	allowed := h.service.Authorize(c.Request.Context(), level, subject, object, req.Action)
	utils.SuccessResponse(c, http.StatusOK, "", gin.H{"allowed": allowed})
}

// ListPolicies handles GET /authz/policies for the caller's own grants.
func (h *AuthzHandler) ListPolicies(c *gin.Context) {
	actor, ok := subjectFrom(c)
	if !ok {
		return
	}
	policies, err := h.service.Policies(c.Request.Context(), actor)
	if err != nil {
		respondError(c, h.logger, "list policies", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", toPolicyResponses(policies))
}

// GrantService handles PUT /groups/:group/services/:service
func (h *AuthzHandler) GrantService(c *gin.Context) {
	h.changeService(c, "service granted", h.service.GrantService)
}

// RevokeService handles DELETE /groups/:group/services/:service
func (h *AuthzHandler) RevokeService(c *gin.Context) {
	h.changeService(c, "service revoked", h.service.RevokeService)
}

func (h *AuthzHandler) changeService(c *gin.Context, message string, apply func(ctx context.Context, group string, svc authz.Service, actor string) error) {
	actor, ok := subjectFrom(c)
	if !ok {
		return
	}
	svc, err := authz.ParseService(c.Param("service"))
	if err != nil {
		utils.ErrorResponseWithError(c, errors.NewValidationError("invalid service", c.Param("service")))
		return
	}
	if !authorize(c, h.logger, appauthz.GuardRequest{Subject: actor},
		h.guards.RequireLogin(),
		h.guards.RequireLevelAction(authz.LevelUser, authz.ActionManageServices),
	) {
		return
	}

	if err := apply(c.Request.Context(), c.Param("group"), svc, actor); err != nil {
		respondError(c, h.logger, "change service", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, message, nil)
}
