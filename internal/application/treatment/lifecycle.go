package treatment

import (
	"context"
	"errors"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"vulntrack/internal/domain/notification"
	"vulntrack/internal/domain/vulnerability"
)

// CloseByExclusionCommand takes paths of a root out of scan scope. With no
// patterns the whole root is excluded. Patterns are doublestar globs
// matched against the vulnerability's location, for example
// "node_modules/**" or "**/*.min.js".
type CloseByExclusionCommand struct {
	GroupName string
	Root      string
	Patterns  []string
}

// CloseByExclusion closes every open vulnerability of the root that
// matches, auto-verifying pending reattacks. It returns how many closed.
func (e *Engine) CloseByExclusion(ctx context.Context, cmd CloseByExclusionCommand, actor string) (int, error) {
	const op = "close by exclusion"
	kv := []any{"group", cmd.GroupName, "root", cmd.Root, "patterns", cmd.Patterns, "actor", actor}

	for _, p := range cmd.Patterns {
		if !doublestar.ValidatePattern(p) {
			return 0, e.fail(op, vulnerability.ErrInvalidExclusionPattern, append(kv, "pattern", p)...)
		}
	}

	vulns, err := e.vulns.ListByRoot(ctx, strings.ToLower(strings.TrimSpace(cmd.GroupName)), strings.TrimSpace(cmd.Root))
	if err != nil {
		return 0, e.fail(op, err, kv...)
	}

	now := e.now()
	var changed []*vulnerability.Vulnerability
	for _, v := range vulns {
		if !excluded(v, cmd.Patterns) {
			continue
		}
		if v.CloseByExclusion(actor, now) {
			changed = append(changed, v)
		}
	}
	if len(changed) == 0 {
		return 0, nil
	}

	if err := e.commit(ctx, nil, changed); err != nil {
		return 0, e.fail(op, err, kv...)
	}
	e.logger.Infow("vulnerabilities closed by exclusion", append(kv, "closed", len(changed))...)
	return len(changed), nil
}

func excluded(v *vulnerability.Vulnerability, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	where := strings.TrimPrefix(v.Where(), "/")
	for _, p := range patterns {
		if ok, _ := doublestar.Match(strings.TrimPrefix(p, "/"), where); ok {
			return true
		}
	}
	return false
}

// ExpireAcceptances reverts every temporary acceptance whose deadline has
// passed to UNTREATED. One failing vulnerability does not stop the rest;
// failures are returned joined.
func (e *Engine) ExpireAcceptances(ctx context.Context) (int, error) {
	now := e.now()
	vulns, err := e.vulns.ListExpiredAcceptances(ctx, now)
	if err != nil {
		return 0, e.fail("expire acceptances", err)
	}

	expired := 0
	var errs []error
	for _, v := range vulns {
		entry, ok := v.ExpireAcceptance(SystemActor, now)
		if !ok {
			continue
		}
		if err := e.vulns.Save(ctx, v); err != nil {
			e.logger.Errorw("failed to expire acceptance", "vulnerability_id", v.ID(), "error", err)
			errs = append(errs, err)
			continue
		}
		expired++
		e.observeTreatments(entry)
		e.notify(ctx, notification.KindTreatmentChanged, v.GroupName(), e.cfg.StakeholderRoles, recipients(entry.Assigned), treatmentPayload(v, entry))
	}

	if expired > 0 {
		e.logger.Infow("expired acceptances reverted", "count", expired)
	}
	return expired, errors.Join(errs...)
}

type RemoveVulnerabilityCommand struct {
	VulnerabilityID string
	FindingID       string
	Justification   string
}

// RemoveVulnerability soft-deletes a vulnerability. Removing an already
// deleted one succeeds without a new entry.
func (e *Engine) RemoveVulnerability(ctx context.Context, cmd RemoveVulnerabilityCommand, actor string) error {
	const op = "remove vulnerability"
	kv := []any{"vulnerability_id", cmd.VulnerabilityID, "actor", actor}

	if err := e.checkJustification(cmd.Justification); err != nil {
		return e.fail(op, err, kv...)
	}
	v, err := e.loadVulnerability(ctx, cmd.VulnerabilityID, cmd.FindingID)
	if err != nil {
		return e.fail(op, err, kv...)
	}
	if !v.Remove(strings.TrimSpace(cmd.Justification), actor, e.now()) {
		return nil
	}
	if err := e.vulns.Save(ctx, v); err != nil {
		return e.fail(op, err, kv...)
	}
	e.logger.Infow("vulnerability removed", kv...)
	return nil
}
