package driven

import (
	"context"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// SearchIndexProvider hands out a SearchIndex bound to one index name.
type SearchIndexProvider interface {
	Index(name string) SearchIndex
}

// SearchIndex covers index lifecycle and bulk writes for a single index.
type SearchIndex interface {
	// Exists reports whether the index is present
	Exists(ctx context.Context) (bool, error)

	// Count returns the number of documents in the index
	Count(ctx context.Context) (int64, error)

	// Create creates the index exclusively: it fails with
	// domain.ErrIndexAlreadyExists if the index is already present.
	Create(ctx context.Context, template *domain.IndexTemplate) error

	// CreateIfAbsent creates the index, a no-op when it already exists
	CreateIfAbsent(ctx context.Context, template *domain.IndexTemplate) error

	// Refresh makes recently written documents visible to reads
	Refresh(ctx context.Context) error

	// SetRefreshInterval sets the near-real-time refresh cadence;
	// "-1" disables automatic refresh for write throughput.
	SetRefreshInterval(ctx context.Context, interval string) error

	// Bulk submits docs as one bulk request of "index" (upsert-by-id)
	// actions. Per-item failures are returned, not raised: the request
	// succeeds once every item has been attempted.
	Bulk(ctx context.Context, docs []*domain.IndexDocument) ([]domain.BulkItemError, error)

	// DeleteByFieldValues deletes every document whose field matches any of
	// values. Large value sets are partitioned to respect the engine's
	// boolean-clause limit, and each partition tolerates version conflicts.
	DeleteByFieldValues(ctx context.Context, field string, values []any) error

	// SearchByMatch returns documents matching the match-query condition
	SearchByMatch(ctx context.Context, cond map[string]any) ([]domain.Hit, error)

	// DeleteByMatch deletes documents matching the match-query condition,
	// throttled to requestsPerSecond (-1 means unlimited).
	DeleteByMatch(ctx context.Context, cond map[string]any, requestsPerSecond int) error
}
