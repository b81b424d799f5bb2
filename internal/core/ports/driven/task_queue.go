package driven

import (
	"context"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// TaskQueue hands indexing tasks to workers.
type TaskQueue interface {
	// Enqueue adds a task for processing
	Enqueue(ctx context.Context, task *domain.IndexTask) error

	// Dequeue retrieves the next available task, waiting up to timeout
	// seconds. Returns nil, nil when no task became available. The returned
	// task is marked processing and is not handed to other workers.
	Dequeue(ctx context.Context, timeout int) (*domain.IndexTask, error)

	// Ack acknowledges successful completion of a task
	Ack(ctx context.Context, taskID string) error

	// Nack reports a failed attempt. The task is re-queued with backoff
	// until its attempts are exhausted, then marked failed.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask retrieves a task by ID for status checking
	GetTask(ctx context.Context, taskID string) (*domain.IndexTask, error)

	// Ping checks if the queue backend is healthy
	Ping(ctx context.Context) error

	// Close cleans up resources
	Close() error
}
