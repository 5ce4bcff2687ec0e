package authz

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/shared/logger"
)

// DefaultCacheTTL bounds how long a resolved policy set may be served from
// cache.
const DefaultCacheTTL = 24 * time.Hour

// PolicyResolver reads a subject's policies through a TTL cache. Cache
// failures fall back to the store: an unreachable cache must never look
// like "no policies".
type PolicyResolver struct {
	repo    authz.PolicyRepository
	cache   authz.PolicyCache
	ttl     time.Duration
	flight  singleflight.Group
	metrics Metrics
	logger  logger.Interface
}

func NewPolicyResolver(repo authz.PolicyRepository, cache authz.PolicyCache, ttl time.Duration, metrics Metrics, log logger.Interface) *PolicyResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &PolicyResolver{
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  log,
	}
}

// GetPolicies returns every policy held by subject. withCache=false skips
// both the request memo and the cache, and refreshes them from the store.
func (r *PolicyResolver) GetPolicies(ctx context.Context, subject string, withCache bool) ([]*authz.Policy, error) {
	subject = authz.Normalize(subject)

	if !withCache {
		policies, err := r.loadAndCache(ctx, subject)
		if err != nil {
			return nil, err
		}
		memoStore(ctx, policiesKey(subject), policies)
		return policies, nil
	}

	if policies, ok := memoLoad[[]*authz.Policy](ctx, policiesKey(subject)); ok {
		return policies, nil
	}

	policies, found, err := r.cache.Get(ctx, subject)
	switch {
	case err != nil:
		r.metrics.ObserveCache(CacheError)
		r.logger.Warnw("policy cache read failed, reading store directly",
			"subject", subject,
			"error", err,
		)
		policies, err = r.repo.ListBySubject(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("failed to list policies: %w", err)
		}
	case found:
		r.metrics.ObserveCache(CacheHit)
	default:
		r.metrics.ObserveCache(CacheMiss)
		v, err, _ := r.flight.Do(subject, func() (interface{}, error) {
			return r.loadAndCache(ctx, subject)
		})
		if err != nil {
			return nil, err
		}
		policies = v.([]*authz.Policy)
	}

	memoStore(ctx, policiesKey(subject), policies)
	return policies, nil
}

// loadAndCache reads the store and caches the result unless subject was
// invalidated while the read was in flight.
func (r *PolicyResolver) loadAndCache(ctx context.Context, subject string) ([]*authz.Policy, error) {
	gen, genErr := r.cache.Generation(ctx, subject)

	policies, err := r.repo.ListBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list policies: %w", err)
	}
	if genErr != nil {
		r.logger.Warnw("policy cache generation unavailable, not caching",
			"subject", subject,
			"error", genErr,
		)
		return policies, nil
	}

	stored, err := r.cache.SetIfGeneration(ctx, subject, gen, policies, r.ttl)
	switch {
	case err != nil:
		r.logger.Warnw("failed to cache policies",
			"subject", subject,
			"error", err,
		)
	case !stored:
		r.logger.Debugw("policies changed during load, skipped caching", "subject", subject)
	}
	return policies, nil
}

// Invalidate drops subject's cached policies and request-memo entries and
// detaches in-flight loads, so no read that began before the change is
// served or cached after it. A grant or revoke is complete only once this
// returns nil.
func (r *PolicyResolver) Invalidate(ctx context.Context, subject string) error {
	subject = authz.Normalize(subject)
	memoForget(ctx, subject)
	r.flight.Forget(subject)
	if err := r.cache.Delete(ctx, subject); err != nil {
		return fmt.Errorf("failed to invalidate policy cache for %s: %w", subject, err)
	}
	r.logger.Debugw("policy cache invalidated", "subject", subject)
	return nil
}

// ServiceResolver is PolicyResolver for group service entitlements.
type ServiceResolver struct {
	repo    authz.GroupServiceRepository
	cache   authz.GroupServiceCache
	ttl     time.Duration
	flight  singleflight.Group
	metrics Metrics
	logger  logger.Interface
}

func NewServiceResolver(repo authz.GroupServiceRepository, cache authz.GroupServiceCache, ttl time.Duration, metrics Metrics, log logger.Interface) *ServiceResolver {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ServiceResolver{
		repo:    repo,
		cache:   cache,
		ttl:     ttl,
		metrics: metrics,
		logger:  log,
	}
}

// GetServices returns group's entitlements; an unknown group has none.
func (r *ServiceResolver) GetServices(ctx context.Context, group string) (*authz.GroupServices, error) {
	group = authz.Normalize(group)

	if services, ok := memoLoad[*authz.GroupServices](ctx, servicesKey(group)); ok {
		return services, nil
	}

	services, found, err := r.cache.Get(ctx, group)
	switch {
	case err != nil:
		r.metrics.ObserveCache(CacheError)
		r.logger.Warnw("group service cache read failed, reading store directly",
			"group", group,
			"error", err,
		)
		services, err = r.load(ctx, group)
		if err != nil {
			return nil, err
		}
	case found:
		r.metrics.ObserveCache(CacheHit)
	default:
		r.metrics.ObserveCache(CacheMiss)
		v, err, _ := r.flight.Do(group, func() (interface{}, error) {
			return r.loadAndCache(ctx, group)
		})
		if err != nil {
			return nil, err
		}
		services = v.(*authz.GroupServices)
	}

	memoStore(ctx, servicesKey(group), services)
	return services, nil
}

func (r *ServiceResolver) load(ctx context.Context, group string) (*authz.GroupServices, error) {
	services, err := r.repo.Get(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("failed to get group services: %w", err)
	}
	if services == nil {
		services = authz.NewGroupServices(group)
	}
	return services, nil
}

func (r *ServiceResolver) loadAndCache(ctx context.Context, group string) (*authz.GroupServices, error) {
	gen, genErr := r.cache.Generation(ctx, group)

	services, err := r.load(ctx, group)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		r.logger.Warnw("group service cache generation unavailable, not caching", "group", group, "error", genErr)
		return services, nil
	}

	stored, err := r.cache.SetIfGeneration(ctx, group, gen, services, r.ttl)
	switch {
	case err != nil:
		r.logger.Warnw("failed to cache group services", "group", group, "error", err)
	case !stored:
		r.logger.Debugw("group services changed during load, skipped caching", "group", group)
	}
	return services, nil
}

// Invalidate drops group's cached entitlements and detaches in-flight
// loads.
func (r *ServiceResolver) Invalidate(ctx context.Context, group string) error {
	group = authz.Normalize(group)
	r.flight.Forget(group)
	if m := memoFrom(ctx); m != nil {
		m.mu.Lock()
		delete(m.entries, servicesKey(group))
		m.mu.Unlock()
	}
	if err := r.cache.Delete(ctx, group); err != nil {
		return fmt.Errorf("failed to invalidate group service cache for %s: %w", group, err)
	}
	return nil
}
