package driven

import (
	"context"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// RunStore persists indexing run states so failed-item counts and terminal
// phases outlive the process. Implementations must upsert by job id.
type RunStore interface {
	// Save creates or updates the run state for its job id
	Save(ctx context.Context, state *domain.RunState) error

	// Get retrieves a run state by job id; domain.ErrTaskNotFound when absent
	Get(ctx context.Context, jobID string) (*domain.RunState, error)

	// List retrieves recent run states for an index, newest first
	List(ctx context.Context, indexName string, limit int) ([]*domain.RunState, error)
}
