package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulntrack/internal/domain/notification"
	"vulntrack/internal/shared/logger"
)

func setupQueue(t *testing.T) (*miniredis.Miniredis, *RedisTaskQueue) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, NewRedisTaskQueue(client, logger.NewNopLogger())
}

func newTask(t *testing.T, id string, kind notification.Kind) *notification.Task {
	t.Helper()
	task, err := notification.NewTask(id, kind,
		notification.Selector{Group: "acme", Roles: []string{"user_manager"}},
		notification.Payload{"justification": "Fix scheduled"},
		time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return task
}

func TestRedisTaskQueue_FIFO(t *testing.T) {
	_, q := setupQueue(t)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, newTask(t, "t1", notification.KindAcceptanceSubmitted)))
	require.NoError(t, q.Enqueue(ctx, newTask(t, "t2", notification.KindAcceptanceApproved)))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	first, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "t1", first.ID)
	assert.Equal(t, notification.KindAcceptanceSubmitted, first.Kind)
	assert.Equal(t, "acme", first.Selector.Group)
	assert.Equal(t, "Fix scheduled", first.Payload["justification"])

	second, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "t2", second.ID)
}

func TestRedisTaskQueue_DequeueTimesOutEmpty(t *testing.T) {
	_, q := setupQueue(t)

	task, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestRedisTaskQueue_DropsUndecodable(t *testing.T) {
	mr, q := setupQueue(t)
	_, err := mr.Lpush(notificationQueueKey, "not-json")
	require.NoError(t, err)

	task, err := q.Dequeue(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestRedisTaskQueue_DeadLetterAndCloneRoots(t *testing.T) {
	mr, q := setupQueue(t)
	ctx := context.Background()

	task := newTask(t, "t1", notification.KindTreatmentChanged)
	require.NoError(t, q.DeadLetter(ctx, task, errors.New("smtp unavailable")))

	dead, err := mr.List(deadLetterKey)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	var parked deadTask
	require.NoError(t, json.Unmarshal([]byte(dead[0]), &parked))
	assert.Equal(t, "t1", parked.Task.ID)
	assert.Equal(t, "smtp unavailable", parked.Error)

	clone, err := notification.NewTask("c1", notification.KindCloneRoots,
		notification.Selector{Group: "acme"}, notification.Payload{"roots": []string{"backend"}}, time.Now())
	require.NoError(t, err)
	require.NoError(t, q.PublishCloneRoots(ctx, clone))

	published, err := mr.List(cloneRootsKey)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.JSONEq(t, `{"roots":["backend"]}`, published[0])
}

func TestRedisTaskQueue_EnqueueFailsWhenRedisDown(t *testing.T) {
	mr, q := setupQueue(t)
	mr.Close()

	err := q.Enqueue(context.Background(), newTask(t, "t1", notification.KindTreatmentChanged))
	assert.Error(t, err)
}
