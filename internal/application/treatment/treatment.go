package treatment

import (
	"context"
	"strings"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/domain/notification"
	"vulntrack/internal/domain/vulnerability"
	apperrors "vulntrack/internal/shared/errors"
)

type ProposeTreatmentCommand struct {
	VulnerabilityID string
	// FindingID, when set, must own the vulnerability.
	FindingID string
	Proposal  vulnerability.TreatmentProposal
}

// ProposeTreatment appends a new treatment after running every guard. A
// failed guard appends nothing.
func (e *Engine) ProposeTreatment(ctx context.Context, cmd ProposeTreatmentCommand, actor string) (vulnerability.Treatment, error) {
	const op = "propose treatment"
	kv := []any{"vulnerability_id", cmd.VulnerabilityID, "status", cmd.Proposal.Status, "actor", actor}

	v, err := e.loadReleasedVulnerability(ctx, cmd.VulnerabilityID, cmd.FindingID)
	if err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}

	now := e.now()
	ac := vulnerability.AcceptanceContext{Now: now}
	if status, err := vulnerability.ParseTreatmentStatus(string(cmd.Proposal.Status)); err == nil && status == vulnerability.TreatmentAccepted {
		if ac, err = e.acceptanceContext(ctx, v, now); err != nil {
			return vulnerability.Treatment{}, e.fail(op, err, kv...)
		}
	}
	ac.MaxJustificationLength = e.cfg.MaxJustificationLength

	previous := v.CurrentTreatment()
	entry, err := v.ProposeTreatment(cmd.Proposal, actor, ac)
	if err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}
	if err := e.vulns.Save(ctx, v); err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}

	e.observeTreatments(entry)
	e.logger.Infow("treatment updated", append(kv, "treatment_id", entry.ID)...)

	payload := treatmentPayload(v, entry)
	payload["previous_status"] = string(previous.Status)
	var emails []string
	if entry.Assigned != "" {
		emails = []string{entry.Assigned}
	}
	e.notify(ctx, notification.KindTreatmentChanged, v.GroupName(), e.cfg.StakeholderRoles, emails, payload)
	if entry.IsPendingAcceptance() {
		e.notify(ctx, notification.KindAcceptanceSubmitted, v.GroupName(), e.cfg.ManagerRoles, nil, treatmentPayload(v, entry))
	}
	return entry, nil
}

type ReviewAcceptanceCommand struct {
	VulnerabilityID string
	FindingID       string
	// Justification is optional on rejection and ignored on approval.
	Justification string
}

// ApproveAcceptance approves a pending permanent acceptance. Only subjects
// allowed to approve on the vulnerability's group may call it.
func (e *Engine) ApproveAcceptance(ctx context.Context, cmd ReviewAcceptanceCommand, actor string) (vulnerability.Treatment, error) {
	const op = "approve acceptance"
	kv := []any{"vulnerability_id", cmd.VulnerabilityID, "actor", actor}

	v, err := e.loadReleasedVulnerability(ctx, cmd.VulnerabilityID, cmd.FindingID)
	if err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}
	if !e.authorizer.Authorize(ctx, authz.LevelGroup, actor, v.GroupName(), authz.ActionApproveAcceptance) {
		return vulnerability.Treatment{}, e.fail(op, apperrors.NewAccessDeniedError(), kv...)
	}

	requester := v.CurrentTreatment().ModifiedBy
	entry, err := v.ApproveAcceptance(actor, e.now())
	if err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}
	if err := e.vulns.Save(ctx, v); err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}

	e.observeTreatments(entry)
	e.logger.Infow("acceptance approved", kv...)

	e.notify(ctx, notification.KindAcceptanceApproved, v.GroupName(), e.cfg.StakeholderRoles, recipients(requester), treatmentPayload(v, entry))
	e.notify(ctx, notification.KindAcceptanceReport, v.GroupName(), e.cfg.ManagerRoles, nil, treatmentPayload(v, entry))
	return entry, nil
}

// RejectAcceptance rejects a pending permanent acceptance and restores the
// treatment that preceded the request. It returns the restored entry.
func (e *Engine) RejectAcceptance(ctx context.Context, cmd ReviewAcceptanceCommand, actor string) (vulnerability.Treatment, error) {
	const op = "reject acceptance"
	kv := []any{"vulnerability_id", cmd.VulnerabilityID, "actor", actor}

	if strings.TrimSpace(cmd.Justification) != "" {
		if err := e.checkJustification(cmd.Justification); err != nil {
			return vulnerability.Treatment{}, e.fail(op, err, kv...)
		}
	}
	v, err := e.loadReleasedVulnerability(ctx, cmd.VulnerabilityID, cmd.FindingID)
	if err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}
	if !e.authorizer.Authorize(ctx, authz.LevelGroup, actor, v.GroupName(), authz.ActionRejectAcceptance) {
		return vulnerability.Treatment{}, e.fail(op, apperrors.NewAccessDeniedError(), kv...)
	}

	requester := v.CurrentTreatment().ModifiedBy
	restored, err := v.RejectAcceptance(cmd.Justification, actor, e.now())
	if err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}
	if err := e.vulns.Save(ctx, v); err != nil {
		return vulnerability.Treatment{}, e.fail(op, err, kv...)
	}

	history := v.HistoricTreatment()
	e.observeTreatments(history[len(history)-2:]...)
	e.logger.Infow("acceptance rejected", append(kv, "restored_status", restored.Status)...)

	payload := treatmentPayload(v, restored)
	payload["rejection_justification"] = strings.TrimSpace(cmd.Justification)
	e.notify(ctx, notification.KindAcceptanceRejected, v.GroupName(), e.cfg.StakeholderRoles, recipients(requester), payload)
	return restored, nil
}

func recipients(emails ...string) []string {
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		if e != "" && e != SystemActor {
			out = append(out, e)
		}
	}
	return out
}

func treatmentPayload(v *vulnerability.Vulnerability, t vulnerability.Treatment) notification.Payload {
	return notification.Payload{
		"group":             v.GroupName(),
		"finding_id":        v.FindingID(),
		"vulnerability_ids": []string{v.ID()},
		"where":             v.Where(),
		"specific":          v.Specific(),
		"status":            string(t.Status),
		"acceptance_status": string(t.AcceptanceStatus),
		"accepted_until":    formatDate(t.AcceptedUntil),
		"justification":     t.Justification,
		"assigned":          t.Assigned,
		"modified_by":       t.ModifiedBy,
	}
}
