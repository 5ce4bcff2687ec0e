package permission

import (
	"fmt"
	"sort"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	appauthz "vulntrack/internal/application/authz"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/shared/logger"
)

// rbacModel is RBAC with domains: the domain is the policy object (group
// name, organization id or "self").
const rbacModel = `
[request_definition]
r = sub, dom, act

[policy_definition]
p = sub, act

[role_definition]
g = _, _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub, r.dom) && r.act == p.act
`

// rolePrefix keeps role names apart from subjects in casbin's role graph.
const rolePrefix = "role:"

var _ appauthz.Evaluator = (*Evaluator)(nil)

// Evaluator compiles a subject's policy snapshot into an in-memory casbin
// enforcer.
type Evaluator struct {
	logger logger.Interface
}

func NewEvaluator(log logger.Interface) *Evaluator {
	return &Evaluator{logger: log}
}

func (ev *Evaluator) Compile(subject string, policies []*authz.Policy, roles authz.RoleTable) (appauthz.Decision, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to parse casbin model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	enforcer.EnableAutoSave(false)

	if rules := roleRules(roles); len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("failed to load role actions: %w", err)
		}
	}
	if grants := groupingRules(subject, policies); len(grants) > 0 {
		if _, err := enforcer.AddGroupingPolicies(grants); err != nil {
			return nil, fmt.Errorf("failed to load grants: %w", err)
		}
	}

	return func(object, action string) bool {
		allowed, err := enforcer.Enforce(subject, object, action)
		if err != nil {
			ev.logger.Errorw("casbin enforce failed, denying",
				"subject", subject,
				"object", object,
				"action", action,
				"error", err,
			)
			return false
		}
		return allowed
	}, nil
}

func roleRules(roles authz.RoleTable) [][]string {
	names := make([]string, 0, len(roles))
	for name := range roles {
		names = append(names, name)
	}
	sort.Strings(names)

	var rules [][]string
	for _, name := range names {
		seen := make(map[string]struct{})
		for _, action := range roles[name].Actions {
			if _, dup := seen[action]; dup {
				continue
			}
			seen[action] = struct{}{}
			rules = append(rules, []string{rolePrefix + name, action})
		}
	}
	return rules
}

// groupingRules binds subject to each granted role within the grant's
// object. Roles the table does not define are dropped.
func groupingRules(subject string, policies []*authz.Policy) [][]string {
	seen := make(map[string]struct{})
	var rules [][]string
	for _, p := range policies {
		if p.Subject() != subject {
			continue
		}
		key := p.Role() + "|" + p.Object()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		rules = append(rules, []string{subject, rolePrefix + p.Role(), p.Object()})
	}
	return rules
}
