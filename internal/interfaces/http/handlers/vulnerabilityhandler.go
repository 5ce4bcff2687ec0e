package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appauthz "vulntrack/internal/application/authz"
	"vulntrack/internal/application/treatment"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/vulnerability"
	"vulntrack/internal/shared/biztime"
	"vulntrack/internal/shared/errors"
	"vulntrack/internal/shared/logger"
	"vulntrack/internal/shared/utils"
)

// VulnerabilityMutationRequest carries the fields of every vulnerability
// mutation. Each mutation reads the ones it needs.
type VulnerabilityMutationRequest struct {
	Status        string `json:"status"`
	Justification string `json:"justification"`
	Assigned      string `json:"assigned"`
	// AcceptedUntil is a YYYY-MM-DD business date or an RFC3339 timestamp.
	AcceptedUntil string `json:"accepted_until"`
}

type mutationFunc func(ctx context.Context, v *vulnerability.Vulnerability, req VulnerabilityMutationRequest, actor string) (interface{}, error)

type mutationSpec struct {
	guards  []appauthz.Guard
	message string
	run     mutationFunc
}

// VulnerabilityHandler dispatches POST /vulnerabilities/:id/:mutation to
// the treatment engine.
type VulnerabilityHandler struct {
	engine    treatmentEngine
	vulns     vulnerabilityLookup
	login     appauthz.Guard
	mutations map[string]mutationSpec
	logger    logger.Interface
}

func NewVulnerabilityHandler(engine treatmentEngine, vulns vulnerabilityLookup, guards guardFactory, log logger.Interface) *VulnerabilityHandler {
	h := &VulnerabilityHandler{
		engine: engine,
		vulns:  vulns,
		login:  guards.RequireLogin(),
		logger: log,
	}

	// Mutate runs the login guard before the lookup; these follow it.
	groupAction := func(action string, extra ...appauthz.Guard) []appauthz.Guard {
		gs := []appauthz.Guard{
			guards.RequireService(authz.ServiceIntegrates),
		}
		gs = append(gs, extra...)
		return append(gs, guards.RequireLevelAction(authz.LevelGroup, action))
	}

	h.mutations = map[string]mutationSpec{
		"update_treatment": {
			guards:  groupAction(authz.ActionUpdateTreatment),
			message: "treatment updated",
			run:     h.updateTreatment,
		},
		"approve_acceptance": {
			guards:  groupAction(authz.ActionApproveAcceptance),
			message: "acceptance approved",
			run:     h.approveAcceptance,
		},
		"reject_acceptance": {
			guards:  groupAction(authz.ActionRejectAcceptance),
			message: "acceptance rejected",
			run:     h.rejectAcceptance,
		},
		"request_zero_risk": {
			guards:  groupAction(authz.ActionRequestZeroRisk),
			message: "zero risk requested",
			run:     h.zeroRisk(engine.RequestZeroRisk),
		},
		"confirm_zero_risk": {
			guards:  groupAction(authz.ActionConfirmZeroRisk, guards.RequireStaff()),
			message: "zero risk confirmed",
			run:     h.zeroRisk(engine.ConfirmZeroRisk),
		},
		"reject_zero_risk": {
			guards:  groupAction(authz.ActionRejectZeroRisk, guards.RequireStaff()),
			message: "zero risk rejected",
			run:     h.zeroRisk(engine.RejectZeroRisk),
		},
		"remove": {
			guards: []appauthz.Guard{
				guards.RequireLevelAction(authz.LevelGroup, authz.ActionRemoveFinding),
			},
			message: "vulnerability removed",
			run:     h.remove,
		},
	}
	return h
}

// Mutate handles POST /vulnerabilities/:id/:mutation
func (h *VulnerabilityHandler) Mutate(c *gin.Context) {
	mut, ok := h.mutations[c.Param("mutation")]
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("unknown mutation", c.Param("mutation")))
		return
	}

	subject, ok := subjectFrom(c)
	if !ok {
		return
	}
	if !authorize(c, h.logger, appauthz.GuardRequest{Subject: subject}, h.login) {
		return
	}

	var req VulnerabilityMutationRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, h.logger, &req) {
		return
	}

	ctx := c.Request.Context()
	v, err := h.vulns.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, "load vulnerability", err)
		return
	}
	if v == nil {
		deny(c, h.logger, appauthz.GuardRequest{Subject: subject}, "vulnerability "+c.Param("id")+" not found")
		return
	}

	if !authorize(c, h.logger, appauthz.GuardRequest{Subject: subject, Group: v.GroupName()}, mut.guards...) {
		return
	}

	data, err := mut.run(ctx, v, req, subject)
	if err != nil {
		respondError(c, h.logger, c.Param("mutation"), err)
		return
	}

	h.logger.Infow("vulnerability mutated",
		"mutation", c.Param("mutation"),
		"vulnerability_id", v.ID(),
		"group", v.GroupName(),
		"actor", subject,
	)
	utils.SuccessResponse(c, http.StatusOK, mut.message, data)
}

func (h *VulnerabilityHandler) updateTreatment(ctx context.Context, v *vulnerability.Vulnerability, req VulnerabilityMutationRequest, actor string) (interface{}, error) {
	var until *time.Time
	if req.AcceptedUntil != "" {
		d, err := biztime.ParseDate(req.AcceptedUntil)
		if err != nil {
			return nil, errors.NewValidationError("invalid accepted_until", err.Error())
		}
		until = &d
	}
	t, err := h.engine.ProposeTreatment(ctx, treatment.ProposeTreatmentCommand{
		VulnerabilityID: v.ID(),
		FindingID:       v.FindingID(),
		Proposal: vulnerability.TreatmentProposal{
			Status:        vulnerability.TreatmentStatus(req.Status),
			Justification: req.Justification,
			Assigned:      req.Assigned,
			AcceptedUntil: until,
		},
	}, actor)
	if err != nil {
		return nil, err
	}
	return toTreatmentResponse(t), nil
}

func (h *VulnerabilityHandler) approveAcceptance(ctx context.Context, v *vulnerability.Vulnerability, _ VulnerabilityMutationRequest, actor string) (interface{}, error) {
	t, err := h.engine.ApproveAcceptance(ctx, treatment.ReviewAcceptanceCommand{
		VulnerabilityID: v.ID(),
		FindingID:       v.FindingID(),
	}, actor)
	if err != nil {
		return nil, err
	}
	return toTreatmentResponse(t), nil
}

func (h *VulnerabilityHandler) rejectAcceptance(ctx context.Context, v *vulnerability.Vulnerability, req VulnerabilityMutationRequest, actor string) (interface{}, error) {
	t, err := h.engine.RejectAcceptance(ctx, treatment.ReviewAcceptanceCommand{
		VulnerabilityID: v.ID(),
		FindingID:       v.FindingID(),
		Justification:   req.Justification,
	}, actor)
	if err != nil {
		return nil, err
	}
	return toTreatmentResponse(t), nil
}

func (h *VulnerabilityHandler) zeroRisk(fn func(context.Context, treatment.ZeroRiskCommand, string) error) mutationFunc {
	return func(ctx context.Context, v *vulnerability.Vulnerability, req VulnerabilityMutationRequest, actor string) (interface{}, error) {
		err := fn(ctx, treatment.ZeroRiskCommand{
			FindingID:        v.FindingID(),
			VulnerabilityIDs: []string{v.ID()},
			Justification:    req.Justification,
		}, actor)
		return nil, err
	}
}

func (h *VulnerabilityHandler) remove(ctx context.Context, v *vulnerability.Vulnerability, req VulnerabilityMutationRequest, actor string) (interface{}, error) {
	return nil, h.engine.RemoveVulnerability(ctx, treatment.RemoveVulnerabilityCommand{
		VulnerabilityID: v.ID(),
		FindingID:       v.FindingID(),
		Justification:   req.Justification,
	}, actor)
}
