package mocks

import (
	"context"
	"sync"
)

// MockEmbeddingService is a deterministic in-memory embedder for testing.
// Each vector is Dimension wide; element k is float32(len(text)+k) so tests
// can assert positional correspondence.
type MockEmbeddingService struct {
	mu    sync.Mutex
	calls [][]string

	// Dimension is the width of produced vectors (default 4)
	Dimension int

	// Err, when set, fails every call
	Err error
}

// NewMockEmbeddingService creates a mock producing 4-dimensional vectors.
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{Dimension: 4}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	call := make([]string, len(texts))
	copy(call, texts)
	m.calls = append(m.calls, call)

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, m.Dimension)
		for k := range vec {
			vec[k] = float32(len(text) + k)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Calls returns the text batches passed to Embed, in call order.
func (m *MockEmbeddingService) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]string, len(m.calls))
	copy(out, m.calls)
	return out
}
