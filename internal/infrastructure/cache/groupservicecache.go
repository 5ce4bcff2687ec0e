package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vulntrack/internal/domain/authz"
	"vulntrack/internal/shared/logger"
)

const groupServicesKeyPrefix = "authz:services:"

var _ authz.GroupServiceCache = (*RedisGroupServiceCache)(nil)

type cachedGroupServices struct {
	Group        string          `json:"group"`
	Services     []authz.Service `json:"services"`
	ModifiedBy   string          `json:"modified_by"`
	ModifiedDate time.Time       `json:"modified_date"`
}

type RedisGroupServiceCache struct {
	client *redis.Client
	logger logger.Interface
}

func NewRedisGroupServiceCache(client *redis.Client, log logger.Interface) *RedisGroupServiceCache {
	return &RedisGroupServiceCache{client: client, logger: log}
}

func (c *RedisGroupServiceCache) key(group string) string {
	return groupServicesKeyPrefix + group
}

func (c *RedisGroupServiceCache) Get(ctx context.Context, group string) (*authz.GroupServices, bool, error) {
	data, err := c.client.Get(ctx, c.key(group)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get group services from cache: %w", err)
	}

	var entry cachedGroupServices
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warnw("discarding undecodable group services cache entry", "group", group, "error", err)
		return nil, false, nil
	}
	return authz.ReconstructGroupServices(entry.Group, entry.Services, entry.ModifiedBy, entry.ModifiedDate.UTC()), true, nil
}

func (c *RedisGroupServiceCache) Generation(ctx context.Context, group string) (int64, error) {
	return readGeneration(ctx, c.client, genKeyPrefix+c.key(group))
}

func (c *RedisGroupServiceCache) SetIfGeneration(ctx context.Context, group string, gen int64, services *authz.GroupServices, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(cachedGroupServices{
		Group:        services.Group(),
		Services:     services.Services(),
		ModifiedBy:   services.ModifiedBy(),
		ModifiedDate: services.ModifiedDate(),
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal group services: %w", err)
	}
	return setIfGeneration(ctx, c.client, c.key(group), genKeyPrefix+c.key(group), gen, data, jitter(ttl))
}

func (c *RedisGroupServiceCache) Delete(ctx context.Context, group string) error {
	if err := invalidate(ctx, c.client, c.key(group), genKeyPrefix+c.key(group)); err != nil {
		return fmt.Errorf("failed to delete group services from cache: %w", err)
	}
	return nil
}
