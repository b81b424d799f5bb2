package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
	"github.com/searchlight-oss/indexer-core/internal/core/ports/driven"
)

// DeleteFieldCall records one DeleteByFieldValues invocation.
type DeleteFieldCall struct {
	Field  string
	Values []any
}

// MockSearchIndex is an in-memory implementation of SearchIndex for testing.
type MockSearchIndex struct {
	mu     sync.RWMutex
	exists bool
	docs   map[string]map[string]any
	order  []string

	template        *domain.IndexTemplate
	refreshInterval string
	refreshes       int

	bulkCalls        [][]string
	deleteFieldCalls []DeleteFieldCall
	intervalHistory  []string

	// FailIDs injects per-item bulk failures: doc id to failure reason
	FailIDs map[string]string

	CreateErr error
	BulkErr   error
	DeleteErr error
	ExistsErr error
}

// NewMockSearchIndex creates an empty, absent index.
func NewMockSearchIndex() *MockSearchIndex {
	return &MockSearchIndex{
		docs:    make(map[string]map[string]any),
		FailIDs: make(map[string]string),
	}
}

// SetExists marks the index present without a template, as if created by a
// prior run.
func (m *MockSearchIndex) SetExists(exists bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exists = exists
}

// Seed inserts a document directly, bypassing bulk accounting.
func (m *MockSearchIndex) Seed(id string, fields map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		m.order = append(m.order, id)
	}
	m.docs[id] = fields
}

func (m *MockSearchIndex) Exists(ctx context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	return m.exists, nil
}

func (m *MockSearchIndex) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func (m *MockSearchIndex) Create(ctx context.Context, template *domain.IndexTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.exists {
		return domain.ErrIndexAlreadyExists
	}
	m.exists = true
	m.template = template
	return nil
}

func (m *MockSearchIndex) CreateIfAbsent(ctx context.Context, template *domain.IndexTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.exists {
		return nil
	}
	m.exists = true
	m.template = template
	return nil
}

func (m *MockSearchIndex) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return nil
}

func (m *MockSearchIndex) SetRefreshInterval(ctx context.Context, interval string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshInterval = interval
	m.intervalHistory = append(m.intervalHistory, interval)
	return nil
}

func (m *MockSearchIndex) Bulk(ctx context.Context, docs []*domain.IndexDocument) ([]domain.BulkItemError, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BulkErr != nil {
		return nil, m.BulkErr
	}

	ids := make([]string, 0, len(docs))
	var itemErrs []domain.BulkItemError
	for _, doc := range docs {
		ids = append(ids, doc.ID)
		if reason, fail := m.FailIDs[doc.ID]; fail {
			itemErrs = append(itemErrs, domain.BulkItemError{DocID: doc.ID, Status: 400, Reason: reason})
			continue
		}
		if _, ok := m.docs[doc.ID]; !ok {
			m.order = append(m.order, doc.ID)
		}
		fields := make(map[string]any, len(doc.Fields))
		for k, v := range doc.Fields {
			fields[k] = v
		}
		m.docs[doc.ID] = fields
	}
	m.bulkCalls = append(m.bulkCalls, ids)
	return itemErrs, nil
}

func (m *MockSearchIndex) DeleteByFieldValues(ctx context.Context, field string, values []any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.deleteFieldCalls = append(m.deleteFieldCalls, DeleteFieldCall{Field: field, Values: values})

	match := make(map[string]struct{}, len(values))
	for _, v := range values {
		match[fmt.Sprint(v)] = struct{}{}
	}
	for id, fields := range m.docs {
		v, ok := fields[field]
		if !ok {
			continue
		}
		if _, hit := match[fmt.Sprint(v)]; hit {
			delete(m.docs, id)
			m.removeFromOrder(id)
		}
	}
	return nil
}

func (m *MockSearchIndex) SearchByMatch(ctx context.Context, cond map[string]any) ([]domain.Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []domain.Hit
	for _, id := range m.order {
		fields := m.docs[id]
		if fields == nil || !matches(fields, cond) {
			continue
		}
		hits = append(hits, domain.Hit{ID: id, Score: 1.0, Source: fields})
	}
	return hits, nil
}

func (m *MockSearchIndex) DeleteByMatch(ctx context.Context, cond map[string]any, requestsPerSecond int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, fields := range m.docs {
		if matches(fields, cond) {
			delete(m.docs, id)
			m.removeFromOrder(id)
		}
	}
	return nil
}

func matches(fields map[string]any, cond map[string]any) bool {
	for k, want := range cond {
		got, ok := fields[k]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func (m *MockSearchIndex) removeFromOrder(id string) {
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

// Doc returns a stored document's fields, or nil.
func (m *MockSearchIndex) Doc(id string) map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[id]
}

// IDs returns stored document ids in insertion order.
func (m *MockSearchIndex) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// RefreshInterval returns the last interval set.
func (m *MockSearchIndex) RefreshInterval() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshInterval
}

// IntervalHistory returns every interval set, in order.
func (m *MockSearchIndex) IntervalHistory() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.intervalHistory))
	copy(out, m.intervalHistory)
	return out
}

// Refreshes returns how many times Refresh was called.
func (m *MockSearchIndex) Refreshes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refreshes
}

// BulkCalls returns the ids submitted per bulk call.
func (m *MockSearchIndex) BulkCalls() [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([][]string, len(m.bulkCalls))
	copy(out, m.bulkCalls)
	return out
}

// DeleteFieldCalls returns every DeleteByFieldValues invocation.
func (m *MockSearchIndex) DeleteFieldCalls() []DeleteFieldCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DeleteFieldCall, len(m.deleteFieldCalls))
	copy(out, m.deleteFieldCalls)
	return out
}

// Template returns the template the index was created with.
func (m *MockSearchIndex) Template() *domain.IndexTemplate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.template
}

// MockSearchIndexProvider hands out MockSearchIndex instances by name.
type MockSearchIndexProvider struct {
	mu      sync.Mutex
	indexes map[string]*MockSearchIndex
}

// NewMockSearchIndexProvider creates an empty provider.
func NewMockSearchIndexProvider() *MockSearchIndexProvider {
	return &MockSearchIndexProvider{indexes: make(map[string]*MockSearchIndex)}
}

// Index returns the mock for name, creating it on first use.
func (p *MockSearchIndexProvider) Index(name string) driven.SearchIndex {
	return p.Get(name)
}

// Get returns the underlying mock for assertions.
func (p *MockSearchIndexProvider) Get(name string) *MockSearchIndex {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.indexes[name]
	if !ok {
		idx = NewMockSearchIndex()
		p.indexes[name] = idx
	}
	return idx
}
