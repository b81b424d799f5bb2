package domain

import "time"

// RunPhase is the indexing engine's state machine position.
type RunPhase string

const (
	PhaseIdle           RunPhase = "idle"
	PhaseSchemaBound    RunPhase = "schema_bound"
	PhaseWholeRun       RunPhase = "whole_run"
	PhaseIncrementalRun RunPhase = "incremental_run"
	PhaseCompleted      RunPhase = "completed"
	PhaseFailed         RunPhase = "failed"
)

// RunStats counts what one run read and wrote.
type RunStats struct {
	DocsRead      int `json:"docs_read"`
	DocsUploaded  int `json:"docs_uploaded"`
	DocsFailed    int `json:"docs_failed"`
	Batches       int `json:"batches"`
	DedupValues   int `json:"dedup_values"`
	IndexDocCount int `json:"index_doc_count"`
}

// RunState tracks one indexing run from bind to completion. It is persisted
// by the run store so failed-item counts outlive the process.
type RunState struct {
	JobID       string       `json:"job_id"`
	GroupID     string       `json:"group_id"`
	IndexName   string       `json:"index_name"`
	Mode        IndexingType `json:"mode"`
	Phase       RunPhase     `json:"phase"`
	Stats       RunStats     `json:"stats"`
	Error       string       `json:"error,omitempty"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

// NewRunState returns an idle state for a bound schema.
func NewRunState(jobID, groupID, indexName string, mode IndexingType) *RunState {
	return &RunState{
		JobID:     jobID,
		GroupID:   groupID,
		IndexName: indexName,
		Mode:      mode,
		Phase:     PhaseIdle,
	}
}

// MarkBound records the schema-bound transition.
func (s *RunState) MarkBound() {
	s.Phase = PhaseSchemaBound
}

// MarkRunning records the start of a whole or incremental pass.
func (s *RunState) MarkRunning() {
	now := time.Now()
	s.StartedAt = &now
	if s.Mode == IndexingIncremental {
		s.Phase = PhaseIncrementalRun
	} else {
		s.Phase = PhaseWholeRun
	}
}

// MarkCompleted records a terminal success, possibly with failed items.
func (s *RunState) MarkCompleted() {
	now := time.Now()
	s.Phase = PhaseCompleted
	s.CompletedAt = &now
}

// MarkFailed records a terminal failure.
func (s *RunState) MarkFailed(err string) {
	now := time.Now()
	s.Phase = PhaseFailed
	s.Error = err
	s.CompletedAt = &now
}

// Terminal reports whether the run reached a final phase.
func (s *RunState) Terminal() bool {
	return s.Phase == PhaseCompleted || s.Phase == PhaseFailed
}

// RunResult is returned to the caller at run end. DocsFailed in Stats is the
// non-fatal failure count the caller must inspect: a run can succeed while
// some documents are missing or stale.
type RunResult struct {
	JobID     string       `json:"job_id"`
	IndexName string       `json:"index_name"`
	Mode      IndexingType `json:"mode"`
	Success   bool         `json:"success"`
	Stats     RunStats     `json:"stats"`
	Duration  float64      `json:"duration_seconds"`
}
