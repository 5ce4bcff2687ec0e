package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"vulntrack/internal/domain/notification"
	"vulntrack/internal/shared/logger"
)

const (
	notificationQueueKey = "vulntrack:notifications"
	deadLetterKey        = "vulntrack:notifications:dead"
	cloneRootsKey        = "vulntrack:clone_roots"
)

var _ notification.Queue = (*RedisTaskQueue)(nil)

// deadTask is a task that exhausted its retries, kept for inspection.
type deadTask struct {
	Task     *notification.Task `json:"task"`
	Error    string             `json:"error"`
	FailedAt time.Time          `json:"failed_at"`
}

// RedisTaskQueue is a FIFO of notification tasks on a redis list. Producers
// LPUSH and the worker BRPOPs, so each task is delivered to one worker.
type RedisTaskQueue struct {
	client *redis.Client
	logger logger.Interface
}

func NewRedisTaskQueue(client *redis.Client, log logger.Interface) *RedisTaskQueue {
	return &RedisTaskQueue{client: client, logger: log}
}

func (q *RedisTaskQueue) Enqueue(ctx context.Context, task *notification.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal notification task: %w", err)
	}
	if err := q.client.LPush(ctx, notificationQueueKey, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification task: %w", err)
	}
	q.logger.Debugw("notification task enqueued", "task_id", task.ID, "kind", task.Kind)
	return nil
}

// Dequeue blocks for up to timeout. A zero timeout blocks until a task
// arrives or ctx is done.
func (q *RedisTaskQueue) Dequeue(ctx context.Context, timeout time.Duration) (*notification.Task, error) {
	res, err := q.client.BRPop(ctx, timeout, notificationQueueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue notification task: %w", err)
	}
	// BRPOP replies with [key, value].
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var task notification.Task
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		q.logger.Errorw("dropping undecodable notification task", "error", err)
		return nil, nil
	}
	return &task, nil
}

// DeadLetter parks a task that could not be delivered.
func (q *RedisTaskQueue) DeadLetter(ctx context.Context, task *notification.Task, cause error) error {
	data, err := json.Marshal(deadTask{Task: task, Error: cause.Error(), FailedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal dead task: %w", err)
	}
	if err := q.client.LPush(ctx, deadLetterKey, data).Err(); err != nil {
		return fmt.Errorf("failed to dead-letter notification task: %w", err)
	}
	return nil
}

// PublishCloneRoots hands a clone request to the external cloner.
func (q *RedisTaskQueue) PublishCloneRoots(ctx context.Context, task *notification.Task) error {
	data, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal clone request: %w", err)
	}
	if err := q.client.LPush(ctx, cloneRootsKey, data).Err(); err != nil {
		return fmt.Errorf("failed to publish clone request: %w", err)
	}
	return nil
}

// Len reports the number of pending tasks.
func (q *RedisTaskQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, notificationQueueKey).Result()
}
