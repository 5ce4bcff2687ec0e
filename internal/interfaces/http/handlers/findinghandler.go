package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appauthz "vulntrack/internal/application/authz"
	appfinding "vulntrack/internal/application/finding"
	"vulntrack/internal/application/treatment"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/finding"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/utils"
)

type ReportVulnerabilityRequest struct {
	Root     string `json:"root"`
	Type     string `json:"type" binding:"required"`
	Where    string `json:"where" binding:"required"`
	Specific string `json:"specific"`
	Source   string `json:"source"`
}

type JustificationRequest struct {
	Justification string `json:"justification" binding:"required"`
}

type RequestVerificationRequest struct {
	VulnerabilityIDs []string `json:"vulnerability_ids" binding:"required,min=1"`
	Justification    string   `json:"justification" binding:"required"`
}

type VerifyRequest struct {
	OpenIDs       []string   `json:"open_vulnerabilities"`
	ClosedIDs     []string   `json:"closed_vulnerabilities"`
	Justification string     `json:"justification"`
	ModifiedDate  *time.Time `json:"modified_date"`
}

type CloseByExclusionRequest struct {
	Root     string   `json:"root" binding:"required"`
	Patterns []string `json:"patterns" binding:"required,min=1"`
}

// FindingHandler serves draft review, reporting and the batch
// verification flows of a finding.
type FindingHandler struct {
	findings findingService
	lookup   findingLookup
	engine   treatmentEngine
	guards   guardFactory
	logger   logger.Interface
}

func NewFindingHandler(findings findingService, lookup findingLookup, engine treatmentEngine, guards guardFactory, log logger.Interface) *FindingHandler {
	return &FindingHandler{
		findings: findings,
		lookup:   lookup,
		engine:   engine,
		guards:   guards,
		logger:   log,
	}
}

// loadGroup checks login, resolves the finding's group and runs guards
// against it. A missing finding is denied like a failed guard.
func (h *FindingHandler) loadGroup(c *gin.Context, subject string, guards ...appauthz.Guard) (*finding.Finding, bool) {
	if !authorize(c, h.logger, appauthz.GuardRequest{Subject: subject}, h.guards.RequireLogin()) {
		return nil, false
	}
	f, err := h.lookup.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "load finding", err)
		return nil, false
	}
	if f == nil {
		deny(c, h.logger, appauthz.GuardRequest{Subject: subject}, "finding "+c.Param("id")+" not found")
		return nil, false
	}
	if !authorize(c, h.logger, appauthz.GuardRequest{Subject: subject, Group: f.GroupName()}, guards...) {
		return nil, false
	}
	return f, true
}

// CreateDraft handles POST /findings
func (h *FindingHandler) CreateDraft(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var cmd appfinding.CreateDraftCommand
	if !bindJSON(c, h.logger, &cmd) {
		return
	}
	req := appauthz.GuardRequest{Subject: subject, Group: cmd.GroupName}
	if !authorize(c, h.logger, req,
		h.guards.RequireLogin(),
		h.guards.RequireLevelAction(authz.LevelGroup, authz.ActionSubmitDraft),
	) {
		return
	}

	f, err := h.findings.CreateDraft(c.Request.Context(), cmd, subject)
	if err != nil {
		respondError(c, h.logger, "create draft", err)
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "draft created", toFindingResponse(f))
}

// ReportVulnerability handles POST /findings/:id/vulnerabilities
func (h *FindingHandler) ReportVulnerability(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req ReportVulnerabilityRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	f, ok := h.loadGroup(c, subject,
		h.guards.RequireLevelAction(authz.LevelGroup, authz.ActionSubmitDraft),
	)
	if !ok {
		return
	}

	v, created, err := h.findings.ReportVulnerability(c.Request.Context(), appfinding.ReportVulnerabilityCommand{
		FindingID: f.ID(),
		Root:      req.Root,
		Type:      req.Type,
		Where:     req.Where,
		Specific:  req.Specific,
		Source:    req.Source,
	}, subject)
	if err != nil {
		respondError(c, h.logger, "report vulnerability", err)
		return
	}
	if !created {
		utils.SuccessResponse(c, http.StatusOK, "vulnerability already reported", toVulnerabilityResponse(v))
		return
	}
	utils.SuccessResponse(c, http.StatusCreated, "vulnerability reported", toVulnerabilityResponse(v))
}

// SubmitDraft handles POST /findings/:id/submit
func (h *FindingHandler) SubmitDraft(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	f, ok := h.loadGroup(c, subject,
		h.guards.RequireLevelAction(authz.LevelGroup, authz.ActionSubmitDraft),
	)
	if !ok {
		return
	}
	f, err := h.findings.SubmitDraft(c.Request.Context(), f.ID(), subject)
	if err != nil {
		respondError(c, h.logger, "submit draft", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "draft submitted", toFindingResponse(f))
}

// ApproveDraft handles POST /findings/:id/approve. The service checks the
// reviewer's rights itself.
func (h *FindingHandler) ApproveDraft(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	f, err := h.findings.ApproveDraft(c.Request.Context(), c.Param("id"), subject)
	if err != nil {
		respondError(c, h.logger, "approve draft", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "draft approved", toFindingResponse(f))
}

// RejectDraft handles POST /findings/:id/reject
func (h *FindingHandler) RejectDraft(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	f, err := h.findings.RejectDraft(c.Request.Context(), c.Param("id"), subject)
	if err != nil {
		respondError(c, h.logger, "reject draft", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "draft rejected", toFindingResponse(f))
}

// RemoveFinding handles DELETE /findings/:id
func (h *FindingHandler) RemoveFinding(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req JustificationRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	err := h.findings.RemoveFinding(c.Request.Context(), appfinding.RemoveFindingCommand{
		FindingID:     c.Param("id"),
		Justification: req.Justification,
	}, subject)
	if err != nil {
		respondError(c, h.logger, "remove finding", err)
		return
	}
	utils.NoContentResponse(c)
}

// RequestVerification handles POST /findings/:id/verification
func (h *FindingHandler) RequestVerification(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req RequestVerificationRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	f, ok := h.loadGroup(c, subject,
		h.guards.RequireService(authz.ServiceIntegrates),
		h.guards.RequireLevelAction(authz.LevelGroup, authz.ActionRequestVerification),
	)
	if !ok {
		return
	}

	err := h.engine.RequestVerification(c.Request.Context(), treatment.RequestVerificationCommand{
		FindingID:        f.ID(),
		VulnerabilityIDs: req.VulnerabilityIDs,
		Justification:    req.Justification,
	}, subject)
	if err != nil {
		respondError(c, h.logger, "request verification", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "verification requested", nil)
}

// Verify handles POST /findings/:id/verify
func (h *FindingHandler) Verify(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req VerifyRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	f, ok := h.loadGroup(c, subject,
		h.guards.RequireLevelAction(authz.LevelGroup, authz.ActionVerify),
	)
	if !ok {
		return
	}

	err := h.engine.Verify(c.Request.Context(), treatment.VerifyCommand{
		FindingID:     f.ID(),
		OpenIDs:       req.OpenIDs,
		ClosedIDs:     req.ClosedIDs,
		Justification: req.Justification,
		ModifiedDate:  req.ModifiedDate,
	}, subject)
	if err != nil {
		respondError(c, h.logger, "verify", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "verification recorded", nil)
}

// CloseByExclusion handles POST /groups/:group/exclusions
func (h *FindingHandler) CloseByExclusion(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	var req CloseByExclusionRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	group := c.Param("group")
	if !authorize(c, h.logger, appauthz.GuardRequest{Subject: subject, Group: group},
		h.guards.RequireLogin(),
		h.guards.RequireLevelAction(authz.LevelGroup, authz.ActionCloseByExclusion),
	) {
		return
	}

	closed, err := h.engine.CloseByExclusion(c.Request.Context(), treatment.CloseByExclusionCommand{
		GroupName: group,
		Root:      req.Root,
		Patterns:  req.Patterns,
	}, subject)
	if err != nil {
		respondError(c, h.logger, "close by exclusion", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "exclusions applied", gin.H{"closed": closed})
}

// DecommissionGroup handles POST /groups/:group/decommission
func (h *FindingHandler) DecommissionGroup(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	if err := h.findings.DecommissionGroup(c.Request.Context(), c.Param("group"), subject); err != nil {
		respondError(c, h.logger, "decommission group", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "group decommissioned", nil)
}

// MaskGroup handles POST /groups/:group/mask
func (h *FindingHandler) MaskGroup(c *gin.Context) {
	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	masked, err := h.findings.MaskFindings(c.Request.Context(), c.Param("group"), subject)
	if err != nil {
		respondError(c, h.logger, "mask group", err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "group masked", gin.H{"masked": masked})
}
