package authz

import (
	"context"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/shared/logger"
)

// Decision answers whether a subject may perform action on object.
type Decision func(object, action string) bool

// Evaluator compiles a policy snapshot and a role table into a Decision.
type Evaluator interface {
	Compile(subject string, policies []*authz.Policy, roles authz.RoleTable) (Decision, error)
}

// Enforcer is a predicate over one subject's policies at one level. It is
// cheap to build and meant to live for a single request.
type Enforcer struct {
	level    authz.Level
	subject  string
	admin    bool
	empty    bool
	universe map[string]struct{}
	decide   Decision
}

// Allowed reports whether the subject may perform action on object. At
// group and organization level a user-level admin is allowed every action
// the level defines.
func (e *Enforcer) Allowed(object, action string) bool {
	if e.level == authz.LevelUser {
		object = authz.SelfObject
	}
	if e.admin && e.level.AllowsAdminBypass() {
		_, known := e.universe[action]
		return known
	}
	return e.decide(authz.Normalize(object), action)
}

// IsEmpty reports a non-admin subject with no policies at all.
func (e *Enforcer) IsEmpty() bool { return e.empty }

func (e *Enforcer) Level() authz.Level { return e.level }
func (e *Enforcer) Subject() string    { return e.subject }

// EnforcerFactory builds enforcers from resolved policies.
type EnforcerFactory struct {
	resolver  *PolicyResolver
	roles     *authz.RoleModel
	evaluator Evaluator
	logger    logger.Interface
}

func NewEnforcerFactory(resolver *PolicyResolver, roles *authz.RoleModel, evaluator Evaluator, log logger.Interface) *EnforcerFactory {
	return &EnforcerFactory{
		resolver:  resolver,
		roles:     roles,
		evaluator: evaluator,
		logger:    log,
	}
}

// Build never fails. A policy lookup error yields a deny-all enforcer and is
// logged; callers retry with withCache=false when IsEmpty reports true.
func (f *EnforcerFactory) Build(ctx context.Context, level authz.Level, subject string, withCache bool) *Enforcer {
	subject = authz.Normalize(subject)
	key := enforcerKey(level, subject)
	if withCache {
		if e, ok := memoLoad[*Enforcer](ctx, key); ok {
			return e
		}
	}

	policies, err := f.resolver.GetPolicies(ctx, subject, withCache)
	if err != nil {
		f.logger.Errorw("failed to resolve policies, denying",
			"subject", subject,
			"level", level,
			"error", err,
		)
		policies = nil
	}

	roles := f.roles.RolesFor(level, subject)
	admin := authz.HasUserRole(policies, authz.RoleAdmin)
	levelPolicies := authz.FilterByLevel(policies, level)

	decide, err := f.evaluator.Compile(subject, levelPolicies, roles)
	if err != nil {
		f.logger.Warnw("policy evaluator failed, using direct match",
			"subject", subject,
			"level", level,
			"error", err,
		)
		decide = MatchPolicies(levelPolicies, roles)
	}

	universe := make(map[string]struct{})
	for _, a := range roles.Actions() {
		universe[a] = struct{}{}
	}

	e := &Enforcer{
		level:    level,
		subject:  subject,
		admin:    admin,
		empty:    len(policies) == 0 && !admin,
		universe: universe,
		decide:   decide,
	}
	if e.empty {
		f.logger.Warnw("enforcer built with empty permission set",
			"subject", subject,
			"level", level,
			"with_cache", withCache,
		)
	}

	memoStore(ctx, key, e)
	return e
}

// MatchPolicies is the reference decision: any policy on the object whose
// role grants the action allows it.
func MatchPolicies(policies []*authz.Policy, roles authz.RoleTable) Decision {
	return func(object, action string) bool {
		for _, p := range policies {
			if p.Object() == object && roles.Allows(p.Role(), action) {
				return true
			}
		}
		return false
	}
}
