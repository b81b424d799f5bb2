package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// MockTaskQueue is a channel-backed TaskQueue for testing workers.
type MockTaskQueue struct {
	mu     sync.Mutex
	tasks  map[string]*domain.IndexTask
	queue  chan *domain.IndexTask
	acks   []string
	nacks  []string
	closed bool
}

// NewMockTaskQueue creates a queue with room for 16 pending tasks.
func NewMockTaskQueue() *MockTaskQueue {
	return &MockTaskQueue{
		tasks: make(map[string]*domain.IndexTask),
		queue: make(chan *domain.IndexTask, 16),
	}
}

func (m *MockTaskQueue) Enqueue(ctx context.Context, task *domain.IndexTask) error {
	m.mu.Lock()
	m.tasks[task.ID] = task
	m.mu.Unlock()
	m.queue <- task
	return nil
}

func (m *MockTaskQueue) Dequeue(ctx context.Context, timeout int) (*domain.IndexTask, error) {
	wait := time.Duration(timeout) * time.Second
	if timeout <= 0 {
		wait = 100 * time.Millisecond
	}
	select {
	case task := <-m.queue:
		task.MarkProcessing()
		return task, nil
	case <-time.After(wait):
		return nil, nil
	case <-ctx.Done():
		return nil, nil
	}
}

func (m *MockTaskQueue) Ack(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, taskID)
	if task, ok := m.tasks[taskID]; ok {
		task.MarkCompleted()
	}
	return nil
}

func (m *MockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nacks = append(m.nacks, taskID)
	if task, ok := m.tasks[taskID]; ok {
		task.MarkFailed(reason)
	}
	return nil
}

func (m *MockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.IndexTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (m *MockTaskQueue) Ping(ctx context.Context) error { return nil }

func (m *MockTaskQueue) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Acks returns acknowledged task ids, in order.
func (m *MockTaskQueue) Acks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.acks))
	copy(out, m.acks)
	return out
}

// Nacks returns negatively acknowledged task ids, in order.
func (m *MockTaskQueue) Nacks() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.nacks))
	copy(out, m.nacks)
	return out
}
