package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Invalidation counters live under genKeyPrefix + the entry key. They never
// expire so a reset can not collide with an older reading.
const genKeyPrefix = "authz:gen:"

func readGeneration(ctx context.Context, client *redis.Client, genKey string) (int64, error) {
	gen, err := client.Get(ctx, genKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

// setIfGeneration writes data under key only while genKey still holds gen.
// A concurrent invalidation aborts the transaction and reports stored=false.
func setIfGeneration(ctx context.Context, client *redis.Client, key, genKey string, gen int64, data []byte, ttl time.Duration) (bool, error) {
	stored := false
	err := client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, genKey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to write cache entry: %w", err)
	}
	return stored, nil
}

// invalidate drops key and bumps its generation in one transaction.
func invalidate(ctx context.Context, client *redis.Client, key, genKey string) error {
	_, err := client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.Incr(ctx, genKey)
		return nil
	})
	return err
}
