package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apporganization "vulntrack/internal/application/organization"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/utils"
)

type CreateGroupRequest struct {
	Name string `json:"name" binding:"required"`
}

// OrganizationHandler manages organizations, their groups and acceptance
// policies. Authorization happens in the service.
type OrganizationHandler struct {
	service organizationService
	logger  logger.Interface
}

func NewOrganizationHandler(service organizationService, log logger.Interface) *OrganizationHandler {
	return &OrganizationHandler{service: service, logger: log}
}

// CreateOrganization handles POST /organizations
func (h *OrganizationHandler) CreateOrganization(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var cmd apporganization.CreateOrganizationCommand
	if !bindJSON(c, h.logger, &cmd) {
		return
	}
	org, err := h.service.CreateOrganization(c.Request.Context(), cmd, subject)
	if err != nil {
		respondError(c, h.logger, "create organization", err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "organization created", toOrganizationResponse(org))
}

// CreateGroup handles POST /organizations/:id/groups
func (h *OrganizationHandler) CreateGroup(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req CreateGroupRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	g, err := h.service.CreateGroup(c.Request.Context(), apporganization.CreateGroupCommand{
		Name:           req.Name,
		OrganizationID: c.Param("id"),
	}, subject)
	if err != nil {
		respondError(c, h.logger, "create group", err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "group created", toGroupResponse(g))
}

// GetPolicies handles GET /organizations/:id/policies
func (h *OrganizationHandler) GetPolicies(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	p, err := h.service.GetPolicies(c.Request.Context(), c.Param("id"), subject)
	if err != nil {
		respondError(c, h.logger, "get policies", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", toPoliciesResponse(p))
}

// UpdatePolicies handles PUT /organizations/:id/policies
func (h *OrganizationHandler) UpdatePolicies(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var cmd apporganization.UpdatePoliciesCommand
	if !bindJSON(c, h.logger, &cmd) {
		return
	}
	cmd.OrganizationID = c.Param("id")

	p, err := h.service.UpdatePolicies(c.Request.Context(), cmd, subject)
	if err != nil {
		respondError(c, h.logger, "update policies", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "policies updated", toPoliciesResponse(p))
}
