package treatment

import (
	"context"
	"sort"
	"time"

	"vulntrack/internal/domain/finding"
	"vulntrack/internal/domain/notification"
	"vulntrack/internal/domain/vulnerability"
	"vulntrack/internal/shared/biztime"
)

type RequestVerificationCommand struct {
	FindingID        string
	VulnerabilityIDs []string
	Justification    string
}

// RequestVerification opens a reattack cycle for a batch of open
// vulnerabilities of one finding.
func (e *Engine) RequestVerification(ctx context.Context, cmd RequestVerificationCommand, actor string) error {
	const op = "request verification"
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

	now := e.now()
	batch := vulnerabilityIDs(vulns)
	for _, v := range vulns {
		if _, err := v.RequestVerification(batch, actor, now); err != nil {
			return e.fail(op, err, append(kv, "failed_vulnerability_id", v.ID())...)
		}
	}

	comment, err := e.newComment(f.ID(), finding.CommentVerification, cmd.Justification, actor, now)
	if err != nil {
		return e.fail(op, err, kv...)
	}
	if err := e.commit(ctx, comment, vulns); err != nil {
		return e.fail(op, err, kv...)
	}

	e.logger.Infow("verification requested", kv...)
	e.notify(ctx, notification.KindVerificationRequested, f.GroupName(), e.cfg.StakeholderRoles, nil, notification.Payload{
		"group":             f.GroupName(),
		"finding_id":        f.ID(),
		"finding_title":     f.Title(),
		"vulnerability_ids": batch,
		"justification":     cmd.Justification,
		"modified_by":       actor,
	})
	return nil
}

// VerifyCommand closes a reattack cycle. ClosedIDs were found remediated
// and move to CLOSED; OpenIDs remain open. ModifiedDate backdates the
// entries to when the reattack happened and defaults to now.
type VerifyCommand struct {
	FindingID     string
	OpenIDs       []string
	ClosedIDs     []string
	Justification string
	ModifiedDate  *time.Time
}

func (e *Engine) Verify(ctx context.Context, cmd VerifyCommand, actor string) error {
	const op = "verify"
	kv := []any{"finding_id", cmd.FindingID, "open_ids", cmd.OpenIDs, "closed_ids", cmd.ClosedIDs, "actor", actor}

	openIDs, closedIDs := dedupe(cmd.OpenIDs), dedupe(cmd.ClosedIDs)
	closedSet := make(map[string]bool, len(closedIDs))
	for _, id := range closedIDs {
		closedSet[id] = true
	}
	for _, id := range openIDs {
		if closedSet[id] {
			return e.fail(op, vulnerability.ErrAmbiguousVerification, kv...)
		}
	}
	if err := e.checkJustification(cmd.Justification); err != nil {
		return e.fail(op, err, kv...)
	}

	now := e.now()
	when := now
	if cmd.ModifiedDate != nil {
		when = biztime.ToStorage(*cmd.ModifiedDate)
		if when.After(now) {
			return e.fail(op, vulnerability.ErrInvalidModifiedDate, kv...)
		}
	}

	f, err := e.loadReleasedFinding(ctx, cmd.FindingID)
	if err != nil {
		return e.fail(op, err, kv...)
	}
	vulns, err := e.loadBatch(ctx, f.ID(), append(openIDs, closedIDs...))
	if err != nil {
		return e.fail(op, err, kv...)
	}

	batch := vulnerabilityIDs(vulns)
	var closed []*vulnerability.Vulnerability
	for _, v := range vulns {
		wasOpen := v.State() == vulnerability.StateOpen
		if _, err := v.Verify(batch, closedSet[v.ID()], actor, when); err != nil {
			return e.fail(op, err, append(kv, "failed_vulnerability_id", v.ID())...)
		}
		if wasOpen && v.State() == vulnerability.StateClosed {
			closed = append(closed, v)
		}
	}

	comment, err := e.newComment(f.ID(), finding.CommentVerification, cmd.Justification, actor, now)
	if err != nil {
		return e.fail(op, err, kv...)
	}
	if err := e.commit(ctx, comment, vulns); err != nil {
		return e.fail(op, err, kv...)
	}

	e.logger.Infow("verification done", append(kv, "closed", len(closed))...)
	e.notify(ctx, notification.KindVerificationDone, f.GroupName(), e.cfg.StakeholderRoles, nil, notification.Payload{
		"group":             f.GroupName(),
		"finding_id":        f.ID(),
		"finding_title":     f.Title(),
		"vulnerability_ids": batch,
		"closed_ids":        vulnerabilityIDs(closed),
		"justification":     cmd.Justification,
		"modified_by":       actor,
	})
	if roots := distinctRoots(closed); len(roots) > 0 {
		e.notify(ctx, notification.KindCloneRoots, f.GroupName(), nil, nil, notification.Payload{
			"group": f.GroupName(),
			"roots": roots,
		})
	}
	return nil
}

func distinctRoots(vulns []*vulnerability.Vulnerability) []string {
	seen := map[string]bool{}
	var roots []string
	for _, v := range vulns {
		if r := v.Root(); r != "" && !seen[r] {
			seen[r] = true
			roots = append(roots, r)
		}
	}
	sort.Strings(roots)
	return roots
}
