package treatment

import (
	"context"

	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/notification"
	"vulntrack/internal/domain/vulnerability"
)

// ZeroRiskCommand disputes (or settles a dispute over) a batch of a
// finding's vulnerabilities. The justification becomes a comment on the
// finding's thread.
type ZeroRiskCommand struct {
	FindingID        string
	VulnerabilityIDs []string
	Justification    string
}

type zeroRiskStep func(v *vulnerability.Vulnerability, commentID, actor string) (vulnerability.ZeroRisk, error)

func (e *Engine) RequestZeroRisk(ctx context.Context, cmd ZeroRiskCommand, actor string) error {
	return e.zeroRisk(ctx, "request zero risk", notification.KindZeroRiskRequested, cmd, actor,
		func(v *vulnerability.Vulnerability, commentID, actor string) (vulnerability.ZeroRisk, error) {
			return v.RequestZeroRisk(commentID, actor, e.now())
		})
}

func (e *Engine) ConfirmZeroRisk(ctx context.Context, cmd ZeroRiskCommand, actor string) error {
	return e.zeroRisk(ctx, "confirm zero risk", notification.KindZeroRiskConfirmed, cmd, actor,
		func(v *vulnerability.Vulnerability, commentID, actor string) (vulnerability.ZeroRisk, error) {
			return v.ConfirmZeroRisk(commentID, actor, e.now())
		})
}

func (e *Engine) RejectZeroRisk(ctx context.Context, cmd ZeroRiskCommand, actor string) error {
	return e.zeroRisk(ctx, "reject zero risk", notification.KindZeroRiskRejected, cmd, actor,
		func(v *vulnerability.Vulnerability, commentID, actor string) (vulnerability.ZeroRisk, error) {
			return v.RejectZeroRisk(commentID, actor, e.now())
		})
}

// zeroRisk applies step to the whole batch in memory, then writes the
// comment and every zero-risk entry in one transaction.
func (e *Engine) zeroRisk(ctx context.Context, op string, kind notification.Kind, cmd ZeroRiskCommand, actor string, step zeroRiskStep) error {
	kv := []any{"finding_id", cmd.FindingID, "vulnerability_ids", cmd.VulnerabilityIDs, "actor", actor}

	if err := e.checkJustification(cmd.Justification); err != nil {
		return e.fail(op, err, kv...)
	}
	f, err := e.loadReleasedFinding(ctx, cmd.FindingID)
	if err != nil {
		return e.fail(op, err, kv...)
	}
	vulns, err := e.loadBatch(ctx, f.ID(), dedupe(cmd.VulnerabilityIDs))
	if err != nil {
		return e.fail(op, err, kv...)
	}

	comment, err := e.newComment(f.ID(), finding.CommentZeroRisk, cmd.Justification, actor, e.now())
	if err != nil {
		return e.fail(op, err, kv...)
	}
	for _, v := range vulns {
		if _, err := step(v, comment.ID, actor); err != nil {
			return e.fail(op, err, append(kv, "failed_vulnerability_id", v.ID())...)
		}
	}
	if err := e.commit(ctx, comment, vulns); err != nil {
		return e.fail(op, err, kv...)
	}

	e.logger.Infow(op+" done", kv...)
	e.notify(ctx, kind, f.GroupName(), e.cfg.StakeholderRoles, nil, notification.Payload{
		"group":             f.GroupName(),
		"finding_id":        f.ID(),
		"finding_title":     f.Title(),
		"vulnerability_ids": vulnerabilityIDs(vulns),
		"justification":     cmd.Justification,
		"modified_by":       actor,
	})
	return nil
}
