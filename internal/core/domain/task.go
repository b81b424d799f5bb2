package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskStatus represents the current state of a queued indexing task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IndexTask is one queued indexing job. A worker binds the named schema,
// applies the task's overrides, and drives a single engine run.
type IndexTask struct {
	// ID is the queue-level identifier
	ID string `json:"id"`

	// JobID and GroupID are the run-scoped metadata bound into the schema
	JobID   string `json:"job_id"`
	GroupID string `json:"group_id"`

	// SchemaPath names the schema document to load
	SchemaPath string `json:"schema_path"`

	// Sources, when set, overrides the schema's source-file list
	Sources []string `json:"sources,omitempty"`

	// Mode, when set, overrides the schema's indexing_type
	Mode IndexingType `json:"mode,omitempty"`

	Status      TaskStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	Error       string     `json:"error,omitempty"`

	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ScheduledFor time.Time  `json:"scheduled_for"`
}

// NewIndexTask creates a pending task with default retry policy.
func NewIndexTask(jobID, groupID, schemaPath string) *IndexTask {
	now := time.Now()
	if jobID == "" {
		jobID = GenerateID()
	}
	return &IndexTask{
		ID:           GenerateID(),
		JobID:        jobID,
		GroupID:      groupID,
		SchemaPath:   schemaPath,
		Status:       TaskStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// CanRetry returns true if the task has attempts left.
func (t *IndexTask) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing updates the task to processing state.
func (t *IndexTask) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted updates the task to completed state.
func (t *IndexTask) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed updates the task to failed state.
func (t *IndexTask) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
	t.Error = err
}

// Retry resets the task for retry with exponential backoff.
func (t *IndexTask) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}
