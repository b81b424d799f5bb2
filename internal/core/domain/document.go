package domain

import (
	"fmt"
	"strings"
)

// internalFieldPrefix namespaces fields the indexer adds to every document,
// keeping them apart from schema-declared fields.
const internalFieldPrefix = "searchlight_"

// InternalFieldName returns the namespaced name for an indexer-owned field.
func InternalFieldName(name string) string {
	return internalFieldPrefix + name
}

// RawRecord is one ingested line: field name to scalar or array value.
// Records are ephemeral and consumed once per pipeline pass.
type RawRecord map[string]any

// IndexDocument is one keyed document ready for bulk upload. ID doubles as
// the bulk-write target id and the idempotence token: re-uploading the same
// ID overwrites instead of duplicating.
type IndexDocument struct {
	ID     string
	Fields map[string]any
}

// CompositeID joins the record's identity-field values with "_", in declared
// order. Identical value tuples always produce identical ids.
func CompositeID(record RawRecord, idFields []string) (string, error) {
	parts := make([]string, 0, len(idFields))
	for _, f := range idFields {
		v, ok := record[f]
		if !ok {
			return "", fmt.Errorf("%w: record missing doc id field %q", ErrFieldType, f)
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, "_"), nil
}

// Batch is an ordered, bounded buffer of documents assembled in record order.
// It is owned by the pipeline pass that created it and never outlives its
// upload call.
type Batch struct {
	Docs []*IndexDocument
}

func (b *Batch) Add(doc *IndexDocument) {
	b.Docs = append(b.Docs, doc)
}

func (b *Batch) Len() int {
	return len(b.Docs)
}

// Reset clears the buffer after an upload attempt.
func (b *Batch) Reset() {
	b.Docs = b.Docs[:0]
}

// DedupValues collects the distinct dedup-field values across docs, in
// first-seen order. Every document must carry the dedup field.
func DedupValues(docs []*IndexDocument, field string) ([]any, error) {
	seen := make(map[string]struct{}, len(docs))
	values := make([]any, 0, len(docs))
	for _, doc := range docs {
		v, ok := doc.Fields[field]
		if !ok {
			return nil, fmt.Errorf("%w: document %s missing dedup field %q", ErrFieldType, doc.ID, field)
		}
		key := fmt.Sprint(v)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		values = append(values, v)
	}
	return values, nil
}

// Hit is one search result returned by a match query.
type Hit struct {
	ID     string         `json:"id"`
	Score  float64        `json:"score"`
	Source map[string]any `json:"source"`
}

// BulkReport aggregates the outcome of one batch upload. Failed is the count
// the caller must surface at run end; item errors never abort the batch.
type BulkReport struct {
	Total     int
	Succeeded int
	Failed    int
	Errors    []BulkItemError
}

// Merge folds another report into this one.
func (r *BulkReport) Merge(other BulkReport) {
	r.Total += other.Total
	r.Succeeded += other.Succeeded
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}
