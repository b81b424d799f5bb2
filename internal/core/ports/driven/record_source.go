package driven

import (
	"context"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// RecordSource streams raw ingestion records from named inputs, in input
// order. The inputs are produced by the upstream transform pipeline; one
// record corresponds to one document.
type RecordSource interface {
	// Stream invokes fn once per record. A non-nil error from fn stops the
	// stream and is returned unchanged.
	Stream(ctx context.Context, sources []string, fn func(domain.RawRecord) error) error
}
