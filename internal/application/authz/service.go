package authz

import (
	"context"
	"time"

	"vulntrack/internal/application/common"
	"vulntrack/internal/domain/authz"
	"vulntrack/internal/shared/biztime"
	"vulntrack/internal/shared/errors"
	"vulntrack/internal/shared/logger"
)

// Service is the authorization entry point: decisions, grants and group
// service entitlements.
type Service struct {
	repo            authz.PolicyRepository
	groupServices   authz.GroupServiceRepository
	resolver        *PolicyResolver
	serviceResolver *ServiceResolver
	factory         *EnforcerFactory
	roles           *authz.RoleModel
	metrics         Metrics
	logger          logger.Interface
	now             func() time.Time
}

func NewService(
	repo authz.PolicyRepository,
	groupServices authz.GroupServiceRepository,
	resolver *PolicyResolver,
	serviceResolver *ServiceResolver,
	factory *EnforcerFactory,
	roles *authz.RoleModel,
	metrics Metrics,
	log logger.Interface,
) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		repo:            repo,
		groupServices:   groupServices,
		resolver:        resolver,
		serviceResolver: serviceResolver,
		factory:         factory,
		roles:           roles,
		metrics:         metrics,
		logger:          log,
		now:             biztime.NowUTC,
	}
}

// Roles exposes the role model used by this service.
func (s *Service) Roles() *authz.RoleModel { return s.roles }

// Enforcer returns subject's enforcer at level, rebuilt from the store when
// the cached view is empty.
func (s *Service) Enforcer(ctx context.Context, level authz.Level, subject string) *Enforcer {
	e := s.factory.Build(ctx, level, subject, true)
	if e.IsEmpty() {
		e = s.factory.Build(ctx, level, subject, false)
	}
	return e
}

// Authorize reports whether subject may perform action on object at level.
func (s *Service) Authorize(ctx context.Context, level authz.Level, subject, object, action string) bool {
	if !level.IsValid() || authz.Normalize(subject) == "" {
		s.metrics.ObserveDecision(level, false)
		return false
	}
	allowed := s.Enforcer(ctx, level, subject).Allowed(object, action)
	s.metrics.ObserveDecision(level, allowed)
	return allowed
}

// Grant upserts a policy and invalidates the subject's cache before
// reporting success.
func (s *Service) Grant(ctx context.Context, level authz.Level, subject, object, role, actor string) (bool, error) {
	if !level.IsValid() {
		return false, common.ToAppError(authz.ErrInvalidLevel)
	}
	if !s.roles.IsValidRole(level, role) {
		s.logger.Infow("rejected grant of unknown role", "level", level, "role", role)
		return false, common.ToAppError(authz.ErrInvalidRole)
	}

	policy, err := authz.NewPolicy(level, subject, object, role, actor, s.now())
	if err != nil {
		return false, common.ToAppError(authz.ErrInvalidPolicy)
	}

	if err := s.repo.Put(ctx, policy); err != nil {
		s.logger.Errorw("failed to store policy",
			"level", level,
			"subject", policy.Subject(),
			"object", policy.Object(),
			"error", err,
		)
		return false, errors.NewInternalError("failed to grant role")
	}

	// The write may have lost a race with another writer; invalidate anyway.
	if err := s.resolver.Invalidate(ctx, policy.Subject()); err != nil {
		s.logger.Errorw("policy stored but cache invalidation failed",
			"subject", policy.Subject(),
			"error", err,
		)
		return false, errors.NewInternalError("failed to grant role")
	}

	s.logger.Infow("role granted",
		"level", level,
		"subject", policy.Subject(),
		"object", policy.Object(),
		"role", policy.Role(),
		"actor", actor,
	)
	return true, nil
}

// Revoke deletes a policy. Revoking a missing policy succeeds.
func (s *Service) Revoke(ctx context.Context, level authz.Level, subject, object, actor string) (bool, error) {
	if !level.IsValid() {
		return false, common.ToAppError(authz.ErrInvalidLevel)
	}
	subject = authz.Normalize(subject)
	object = authz.Normalize(object)
	if level == authz.LevelUser {
		object = authz.SelfObject
	}
	if subject == "" || object == "" {
		return false, common.ToAppError(authz.ErrInvalidPolicy)
	}

	if err := s.repo.Delete(ctx, level, subject, object); err != nil {
		s.logger.Errorw("failed to delete policy",
			"level", level,
			"subject", subject,
			"object", object,
			"error", err,
		)
		return false, errors.NewInternalError("failed to revoke role")
	}

	if err := s.resolver.Invalidate(ctx, subject); err != nil {
		s.logger.Errorw("policy deleted but cache invalidation failed",
			"subject", subject,
			"error", err,
		)
		return false, errors.NewInternalError("failed to revoke role")
	}

	s.logger.Infow("role revoked",
		"level", level,
		"subject", subject,
		"object", object,
		"actor", actor,
	)
	return true, nil
}

// Policies returns subject's policies straight from the store.
func (s *Service) Policies(ctx context.Context, subject string) ([]*authz.Policy, error) {
	policies, err := s.resolver.GetPolicies(ctx, subject, false)
	if err != nil {
		s.logger.Errorw("failed to list policies", "subject", subject, "error", err)
		return nil, errors.NewInternalError("failed to list policies")
	}
	return policies, nil
}

// HasService reports whether group is entitled to svc.
func (s *Service) HasService(ctx context.Context, group string, svc authz.Service) (bool, error) {
	services, err := s.serviceResolver.GetServices(ctx, group)
	if err != nil {
		s.logger.Errorw("failed to resolve group services", "group", group, "error", err)
		return false, errors.NewInternalError("failed to resolve group services")
	}
	return services.Has(svc), nil
}

// HasAttribute reports whether group's services yield attr.
func (s *Service) HasAttribute(ctx context.Context, group, attr string) (bool, error) {
	services, err := s.serviceResolver.GetServices(ctx, group)
	if err != nil {
		s.logger.Errorw("failed to resolve group services", "group", group, "error", err)
		return false, errors.NewInternalError("failed to resolve group services")
	}
	return services.HasAttribute(attr), nil
}

func (s *Service) GrantService(ctx context.Context, group string, svc authz.Service, actor string) error {
	return s.updateServices(ctx, group, actor, func(gs *authz.GroupServices) {
		gs.Add(svc, actor, s.now())
	}, svc)
}

func (s *Service) RevokeService(ctx context.Context, group string, svc authz.Service, actor string) error {
	return s.updateServices(ctx, group, actor, func(gs *authz.GroupServices) {
		gs.Remove(svc, actor, s.now())
	}, svc)
}

func (s *Service) updateServices(ctx context.Context, group, actor string, mutate func(*authz.GroupServices), svc authz.Service) error {
	if !svc.IsValid() {
		return common.ToAppError(authz.ErrInvalidService)
	}
	group = authz.Normalize(group)

	current, err := s.groupServices.Get(ctx, group)
	if err != nil {
		s.logger.Errorw("failed to load group services", "group", group, "error", err)
		return errors.NewInternalError("failed to update group services")
	}
	if current == nil {
		current = authz.NewGroupServices(group)
	}
	mutate(current)

	if err := s.groupServices.Put(ctx, current); err != nil {
		s.logger.Errorw("failed to store group services", "group", group, "error", err)
		return errors.NewInternalError("failed to update group services")
	}
	if err := s.serviceResolver.Invalidate(ctx, group); err != nil {
		s.logger.Errorw("group services stored but cache invalidation failed", "group", group, "error", err)
		return errors.NewInternalError("failed to update group services")
	}

	s.logger.Infow("group services updated",
		"group", group,
		"service", svc,
		"actor", actor,
	)
	return nil
}
