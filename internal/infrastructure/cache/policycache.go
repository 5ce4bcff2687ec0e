package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/redis/go-redis/v9"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/shared/logger"
)

const (
	policyKeyPrefix = "authz:policies:"
	// ttlJitterRatio spreads expiry of entries written together.
	ttlJitterRatio = 0.1
)

var _ authz.PolicyCache = (*RedisPolicyCache)(nil)

type cachedPolicy struct {
	Level        string    `json:"level"`
	Subject      string    `json:"subject"`
	Object       string    `json:"object"`
	Role         string    `json:"role"`
	ModifiedBy   string    `json:"modified_by"`
	ModifiedDate time.Time `json:"modified_date"`
}

// RedisPolicyCache stores a subject's policies as one JSON string. An empty
// list is cached like any other value.
type RedisPolicyCache struct {
	client *redis.Client
	logger logger.Interface
}

func NewRedisPolicyCache(client *redis.Client, log logger.Interface) *RedisPolicyCache {
	return &RedisPolicyCache{client: client, logger: log}
}

func (c *RedisPolicyCache) key(subject string) string {
	return policyKeyPrefix + subject
}

func (c *RedisPolicyCache) Get(ctx context.Context, subject string) ([]*authz.Policy, bool, error) {
	data, err := c.client.Get(ctx, c.key(subject)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get policies from cache: %w", err)
	}

	var entries []cachedPolicy
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt entry is a miss; the caller reloads and overwrites it.
		c.logger.Warnw("discarding undecodable policy cache entry", "subject", subject, "error", err)
		return nil, false, nil
	}

	policies := make([]*authz.Policy, 0, len(entries))
	for _, e := range entries {
		policies = append(policies, authz.ReconstructPolicy(
			authz.Level(e.Level), e.Subject, e.Object, e.Role, e.ModifiedBy, e.ModifiedDate.UTC(),
		))
	}
	return policies, true, nil
}

func (c *RedisPolicyCache) Generation(ctx context.Context, subject string) (int64, error) {
	return readGeneration(ctx, c.client, genKeyPrefix+c.key(subject))
}

func (c *RedisPolicyCache) SetIfGeneration(ctx context.Context, subject string, gen int64, policies []*authz.Policy, ttl time.Duration) (bool, error) {
	entries := make([]cachedPolicy, 0, len(policies))
	for _, p := range policies {
		entries = append(entries, cachedPolicy{
			Level:        string(p.Level()),
			Subject:      p.Subject(),
			Object:       p.Object(),
			Role:         p.Role(),
			ModifiedBy:   p.ModifiedBy(),
			ModifiedDate: p.ModifiedDate(),
		})
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return false, fmt.Errorf("failed to marshal policies: %w", err)
	}
	return setIfGeneration(ctx, c.client, c.key(subject), genKeyPrefix+c.key(subject), gen, data, jitter(ttl))
}

func (c *RedisPolicyCache) Delete(ctx context.Context, subject string) error {
	if err := invalidate(ctx, c.client, c.key(subject), genKeyPrefix+c.key(subject)); err != nil {
		return fmt.Errorf("failed to delete policies from cache: %w", err)
	}
	return nil
}

// jitter shortens ttl by up to ttlJitterRatio so it never exceeds the
// configured bound.
func jitter(ttl time.Duration) time.Duration {
	span := int64(float64(ttl) * ttlJitterRatio)
	if span <= 0 {
		return ttl
	}
	return ttl - time.Duration(rand.Int64N(span))
}
