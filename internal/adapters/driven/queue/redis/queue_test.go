package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis, func()) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	return client, mr, func() {
		client.Close()
		mr.Close()
	}
}

func newTestTask() *domain.IndexTask {
	task := domain.NewIndexTask("", "grp-1", "schemas/news.yml")
	task.Sources = []string{"data/news.jsonl"}
	task.Mode = domain.IndexingWhole
	return task
}

func TestNewQueue(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	if q == nil {
		t.Fatal("expected non-nil queue")
	}

	// second queue against the same stream must tolerate the existing group
	if _, err := NewQueue(client, "worker-test-2"); err != nil {
		t.Fatalf("NewQueue with existing group: %v", err)
	}
}

func TestNewQueue_NilClient(t *testing.T) {
	if _, err := NewQueue(nil, "worker-test"); err == nil {
		t.Fatal("expected error for nil client")
	}
}

func TestQueue_EnqueueDequeue(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	ctx := context.Background()
	task := newTestTask()
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, err := q.Dequeue(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("expected status processing, got %s", got.Status)
	}
	if got.SchemaPath != "schemas/news.yml" {
		t.Errorf("unexpected schema path %q", got.SchemaPath)
	}
}

func TestQueue_Dequeue_Empty(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	got, err := q.Dequeue(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil task, got %+v", got)
	}
}

func TestQueue_Ack(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	ctx := context.Background()
	task := newTestTask()
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx, 1); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	if err := q.Ack(ctx, task.ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != domain.TaskStatusCompleted {
		t.Errorf("expected status completed, got %s", got.Status)
	}
}

func TestQueue_Nack_Retries(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	ctx := context.Background()
	task := newTestTask()
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx, 1); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	if err := q.Nack(ctx, task.ID, "bulk upload failed"); err != nil {
		t.Fatalf("Nack: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != domain.TaskStatusPending {
		t.Errorf("expected status pending for retry, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", got.Attempts)
	}
	if got.Error != "bulk upload failed" {
		t.Errorf("unexpected error %q", got.Error)
	}

	// the retry sits in the scheduled set until its backoff elapses
	if first, _ := q.Dequeue(ctx, 1); first != nil {
		t.Fatalf("expected no task before backoff, got %s", first.ID)
	}

	// rescore the entry to the past so the next dequeue promotes it
	client.ZAdd(ctx, scheduledTasks, redis.Z{
		Score:  float64(time.Now().Add(-time.Second).Unix()),
		Member: task.ID,
	})

	retried, err := q.Dequeue(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue after backoff: %v", err)
	}
	if retried == nil {
		t.Fatal("expected retried task after backoff")
	}
	if retried.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, retried.ID)
	}
}

func TestQueue_Nack_Exhausted(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	ctx := context.Background()
	task := newTestTask()
	task.Attempts = task.MaxAttempts
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := q.Dequeue(ctx, 1); err != nil {
		t.Fatalf("Dequeue: %v", err)
	}

	if err := q.Nack(ctx, task.ID, "engine failure"); err != nil {
		t.Fatalf("Nack: %v", err)
	}

	got, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("expected status failed, got %s", got.Status)
	}
}

func TestQueue_GetTask_NotFound(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	_, err = q.GetTask(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestQueue_ScheduledEnqueue(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	ctx := context.Background()
	task := newTestTask()
	task.ScheduledFor = time.Now().Add(10 * time.Second)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if got, _ := q.Dequeue(ctx, 1); got != nil {
		t.Fatalf("expected no task before scheduled time, got %s", got.ID)
	}

	client.ZAdd(ctx, scheduledTasks, redis.Z{
		Score:  float64(time.Now().Add(-time.Second).Unix()),
		Member: task.ID,
	})

	got, err := q.Dequeue(ctx, 1)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if got == nil {
		t.Fatal("expected task after scheduled time")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
}

func TestQueue_Ping(t *testing.T) {
	client, _, cleanup := setupTestRedis(t)
	defer cleanup()

	q, err := NewQueue(client, "worker-test")
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	if err := q.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
