package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	osclient "github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
	"github.com/searchlight-oss/indexer-core/internal/core/ports/driven"
)

// deleteChunkSize partitions dedup value sets per delete-by-query call;
// the engine caps boolean clauses per query (maxClauseCount = 1024).
const deleteChunkSize = 1000

// Verify interface compliance
var (
	_ driven.SearchIndexProvider = (*Provider)(nil)
	_ driven.SearchIndex         = (*SearchIndex)(nil)
)

// Provider hands out OpenSearch-backed SearchIndex instances.
type Provider struct {
	client *osclient.Client
	logger *slog.Logger
}

// NewProvider creates a provider over a shared client.
func NewProvider(client *osclient.Client, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{client: client, logger: logger}
}

// Index returns a SearchIndex bound to name.
func (p *Provider) Index(name string) driven.SearchIndex {
	return &SearchIndex{client: p.client, name: name, logger: p.logger}
}

// SearchIndex implements driven.SearchIndex against one OpenSearch index.
type SearchIndex struct {
	client *osclient.Client
	name   string
	logger *slog.Logger
}

func (s *SearchIndex) Exists(ctx context.Context) (bool, error) {
	req := opensearchapi.IndicesExistsRequest{Index: []string{s.name}}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return false, fmt.Errorf("indices exists: %w", err)
	}
	defer res.Body.Close()
	switch res.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, fmt.Errorf("indices exists %s: %s", s.name, res.Status())
	}
}

func (s *SearchIndex) Count(ctx context.Context) (int64, error) {
	req := opensearchapi.CountRequest{Index: []string{s.name}}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, fmt.Errorf("count %s: %s", s.name, responseError(res))
	}
	var body struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return body.Count, nil
}

// Create creates the index exclusively from the template. An index that is
// already present fails with domain.ErrIndexAlreadyExists so a whole rebuild
// never appends to a stale index.
func (s *SearchIndex) Create(ctx context.Context, template *domain.IndexTemplate) error {
	body, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("marshal index template: %w", err)
	}

	req := opensearchapi.IndicesCreateRequest{Index: s.name, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("indices create: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg := responseError(res)
		if strings.Contains(msg, "resource_already_exists_exception") {
			return fmt.Errorf("index %s: %w", s.name, domain.ErrIndexAlreadyExists)
		}
		return fmt.Errorf("indices create %s: %s", s.name, msg)
	}
	return nil
}

func (s *SearchIndex) CreateIfAbsent(ctx context.Context, template *domain.IndexTemplate) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.Create(ctx, template)
}

func (s *SearchIndex) Refresh(ctx context.Context) error {
	req := opensearchapi.IndicesRefreshRequest{Index: []string{s.name}}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("indices refresh: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indices refresh %s: %s", s.name, responseError(res))
	}
	return nil
}

func (s *SearchIndex) SetRefreshInterval(ctx context.Context, interval string) error {
	settings := map[string]any{
		"index": map[string]any{
			"refresh_interval": interval,
		},
	}
	body, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	req := opensearchapi.IndicesPutSettingsRequest{Index: []string{s.name}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("indices put settings: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("indices put settings %s: %s", s.name, responseError(res))
	}
	return nil
}

// Bulk submits docs as one bulk request of "index" actions keyed by document
// id, so re-submitting an id overwrites instead of duplicating. Per-item
// failures are returned for the caller to report; only transport-level
// failures error out.
func (s *SearchIndex) Bulk(ctx context.Context, docs []*domain.IndexDocument) ([]domain.BulkItemError, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		meta := map[string]any{
			"index": map[string]any{
				"_index": s.name,
				"_id":    doc.ID,
			},
		}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return nil, fmt.Errorf("encode bulk action: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(doc.Fields); err != nil {
			return nil, fmt.Errorf("encode bulk document %s: %w", doc.ID, err)
		}
	}

	req := opensearchapi.BulkRequest{Body: &buf}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("bulk: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("bulk %s: %s", s.name, responseError(res))
	}

	var body struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode bulk response: %w", err)
	}
	if !body.Errors {
		return nil, nil
	}

	var itemErrs []domain.BulkItemError
	for _, item := range body.Items {
		for _, result := range item {
			if result.Error == nil && result.Status < 400 {
				continue
			}
			itemErr := domain.BulkItemError{DocID: result.ID, Status: result.Status}
			if result.Error != nil {
				itemErr.Reason = fmt.Sprintf("%s: %s", result.Error.Type, result.Error.Reason)
			}
			itemErrs = append(itemErrs, itemErr)
		}
	}
	return itemErrs, nil
}

// DeleteByFieldValues deletes every document whose field matches any value.
// The value set is partitioned into deleteChunkSize chunks issued as
// separate delete-by-query calls, each proceeding past version conflicts so
// a deletion racing a concurrent write does not fail the operation.
func (s *SearchIndex) DeleteByFieldValues(ctx context.Context, field string, values []any) error {
	if len(values) == 0 {
		return nil
	}

	for start := 0; start < len(values); start += deleteChunkSize {
		end := start + deleteChunkSize
		if end > len(values) {
			end = len(values)
		}
		chunk := values[start:end]

		should := make([]map[string]any, 0, len(chunk))
		for _, value := range chunk {
			should = append(should, map[string]any{
				"match": map[string]any{field: value},
			})
		}
		query := map[string]any{
			"query": map[string]any{
				"bool": map[string]any{"should": should},
			},
		}
		body, err := json.Marshal(query)
		if err != nil {
			return fmt.Errorf("marshal delete query: %w", err)
		}

		s.logger.Info("deleting by field values",
			"index", s.name,
			"field", field,
			"values", len(chunk),
		)
		req := opensearchapi.DeleteByQueryRequest{
			Index:     []string{s.name},
			Body:      bytes.NewReader(body),
			Conflicts: "proceed",
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("delete by query: %w", err)
		}
		if res.IsError() {
			msg := responseError(res)
			res.Body.Close()
			return fmt.Errorf("delete by query %s: %s", s.name, msg)
		}
		res.Body.Close()
	}
	return nil
}

func (s *SearchIndex) SearchByMatch(ctx context.Context, cond map[string]any) ([]domain.Hit, error) {
	body, err := json.Marshal(map[string]any{"query": matchQuery(cond)})
	if err != nil {
		return nil, fmt.Errorf("marshal search query: %w", err)
	}

	req := opensearchapi.SearchRequest{Index: []string{s.name}, Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", s.name, responseError(res))
	}

	var searchRes struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Score  float64        `json:"_score"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&searchRes); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]domain.Hit, 0, len(searchRes.Hits.Hits))
	for _, hit := range searchRes.Hits.Hits {
		hits = append(hits, domain.Hit{ID: hit.ID, Score: hit.Score, Source: hit.Source})
	}
	return hits, nil
}

func (s *SearchIndex) DeleteByMatch(ctx context.Context, cond map[string]any, requestsPerSecond int) error {
	body, err := json.Marshal(map[string]any{"query": matchQuery(cond)})
	if err != nil {
		return fmt.Errorf("marshal delete query: %w", err)
	}

	req := opensearchapi.DeleteByQueryRequest{
		Index: []string{s.name},
		Body:  bytes.NewReader(body),
	}
	if requestsPerSecond != 0 {
		req.RequestsPerSecond = &requestsPerSecond
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("delete by query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("delete by query %s: %s", s.name, responseError(res))
	}
	return nil
}

// matchQuery builds a match query over cond; one entry maps to a single
// match clause, several to a bool must, none to match_all.
func matchQuery(cond map[string]any) map[string]any {
	if len(cond) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	if len(cond) == 1 {
		return map[string]any{"match": cond}
	}
	must := make([]map[string]any, 0, len(cond))
	for field, value := range cond {
		must = append(must, map[string]any{
			"match": map[string]any{field: value},
		})
	}
	return map[string]any{"bool": map[string]any{"must": must}}
}

func responseError(res *opensearchapi.Response) string {
	body, err := io.ReadAll(res.Body)
	if err != nil || len(body) == 0 {
		return res.Status()
	}
	return fmt.Sprintf("%s - %s", res.Status(), string(body))
}
