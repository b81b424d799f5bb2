package mocks

import (
	"context"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// MockRecordSource streams canned records for testing. Records keyed by
// source name are streamed in the order sources are requested.
type MockRecordSource struct {
	// Records maps a source name to its record sequence
	Records map[string][]domain.RawRecord

	// Err, when set, fails the stream before any record
	Err error
}

// NewMockRecordSource creates an empty source.
func NewMockRecordSource() *MockRecordSource {
	return &MockRecordSource{Records: make(map[string][]domain.RawRecord)}
}

func (m *MockRecordSource) Stream(ctx context.Context, sources []string, fn func(domain.RawRecord) error) error {
	if m.Err != nil {
		return m.Err
	}
	for _, source := range sources {
		for _, record := range m.Records[source] {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(record); err != nil {
				return err
			}
		}
	}
	return nil
}
