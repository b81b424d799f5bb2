package services

import (
	"errors"
	"testing"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

func assemblerSchema() *domain.Schema {
	return &domain.Schema{
		IndexName: "articles",
		Fields: domain.FieldSet{
			TextFields: map[string]domain.TextField{
				"title":    {Type: "text", SrcField: []string{"headline", "subtitle"}},
				"url":      {Type: "keyword", SrcField: []string{"url"}},
				"views":    {Type: "integer", SrcField: []string{"views"}},
				"category": {Type: "keyword"},
			},
		},
		DocIDFields:  []string{"source", "article_id"},
		IndexingType: domain.IndexingWhole,
		BatchSize:    100,
		GroupID:      "grp-7",
	}
}

func baseRecord() domain.RawRecord {
	return domain.RawRecord{
		"source":     "reuters",
		"article_id": 42,
		"headline":   "markets rally",
		"subtitle":   "stocks climb",
		"url":        "https://example.com/a",
		"views":      100,
		"category":   "finance",
	}
}

func TestAssemble_MergeRules(t *testing.T) {
	a := NewDocumentAssembler(assemblerSchema())

	doc, err := a.Assemble(baseRecord())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if doc.ID != "reuters_42" {
		t.Errorf("id = %q", doc.ID)
	}
	// several source fields are space-joined in listed order
	if doc.Fields["title"] != "markets rally stocks climb" {
		t.Errorf("title = %v", doc.Fields["title"])
	}
	// one source field passes through
	if doc.Fields["url"] != "https://example.com/a" {
		t.Errorf("url = %v", doc.Fields["url"])
	}
	// integer values are validated, not rewritten
	if doc.Fields["views"] != 100 {
		t.Errorf("views = %v (%T)", doc.Fields["views"], doc.Fields["views"])
	}
	// no source fields falls back to the field's own name
	if doc.Fields["category"] != "finance" {
		t.Errorf("category = %v", doc.Fields["category"])
	}
}

func TestAssemble_GroupIDField(t *testing.T) {
	a := NewDocumentAssembler(assemblerSchema())

	doc, err := a.Assemble(baseRecord())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.Fields["searchlight_group_id"] != "grp-7" {
		t.Errorf("group id field = %v", doc.Fields["searchlight_group_id"])
	}
}

func TestAssemble_IntegerValidation(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"int", 7, true},
		{"integral float", float64(7), true},
		{"numeric string", "7", true},
		{"fractional float", 7.5, false},
		{"word", "many", false},
		{"bool", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewDocumentAssembler(assemblerSchema())
			record := baseRecord()
			record["views"] = tt.value

			doc, err := a.Assemble(record)
			if tt.ok {
				if err != nil {
					t.Fatalf("Assemble: %v", err)
				}
				// the original value is indexed untouched
				if doc.Fields["views"] != tt.value {
					t.Errorf("views = %v, want %v", doc.Fields["views"], tt.value)
				}
				return
			}
			if !errors.Is(err, domain.ErrFieldType) {
				t.Errorf("expected ErrFieldType, got %v", err)
			}
		})
	}
}

func TestAssemble_MissingSourceField(t *testing.T) {
	a := NewDocumentAssembler(assemblerSchema())
	record := baseRecord()
	delete(record, "subtitle")

	_, err := a.Assemble(record)
	if !errors.Is(err, domain.ErrFieldType) {
		t.Errorf("expected ErrFieldType, got %v", err)
	}
}

func TestAssemble_MissingIDField(t *testing.T) {
	a := NewDocumentAssembler(assemblerSchema())
	record := baseRecord()
	delete(record, "article_id")

	_, err := a.Assemble(record)
	if !errors.Is(err, domain.ErrFieldType) {
		t.Errorf("expected ErrFieldType, got %v", err)
	}
}

func TestAssemble_NonStringValuesStringified(t *testing.T) {
	a := NewDocumentAssembler(assemblerSchema())
	record := baseRecord()
	record["headline"] = 123
	record["subtitle"] = true

	doc, err := a.Assemble(record)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if doc.Fields["title"] != "123 true" {
		t.Errorf("title = %v", doc.Fields["title"])
	}
}

func TestAssemble_EncoderVectorCarriesText(t *testing.T) {
	schema := assemblerSchema()
	schema.Fields.VectorFields = map[string]domain.VectorField{
		"title_vec": {
			Dimension: 4,
			SrcField:  []string{"headline", "subtitle"},
			EmbeddingMethod: domain.EmbeddingMethod{
				Encoder: &domain.EncoderMethod{},
			},
		},
	}
	a := NewDocumentAssembler(schema)

	doc, err := a.Assemble(baseRecord())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// the merged text stands in until the uploader attaches the vector
	if doc.Fields["title_vec"] != "markets rally stocks climb" {
		t.Errorf("title_vec = %v", doc.Fields["title_vec"])
	}
}

func TestAssemble_PrecomputedVectorCopiedVerbatim(t *testing.T) {
	schema := assemblerSchema()
	schema.Fields.VectorFields = map[string]domain.VectorField{
		"doc_vec": {
			Dimension: 3,
			SrcField:  []string{"embedding"},
			EmbeddingMethod: domain.EmbeddingMethod{
				File: &domain.FileMethod{},
			},
		},
	}
	a := NewDocumentAssembler(schema)

	record := baseRecord()
	vector := []any{0.1, 0.2, 0.3}
	record["embedding"] = vector

	doc, err := a.Assemble(record)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	got, ok := doc.Fields["doc_vec"].([]any)
	if !ok || len(got) != 3 {
		t.Fatalf("doc_vec = %v", doc.Fields["doc_vec"])
	}
	if got[0] != 0.1 {
		t.Errorf("doc_vec[0] = %v", got[0])
	}
}

func TestAssemble_PrecomputedVectorMissing(t *testing.T) {
	schema := assemblerSchema()
	schema.Fields.VectorFields = map[string]domain.VectorField{
		"doc_vec": {
			Dimension: 3,
			SrcField:  []string{"embedding"},
			EmbeddingMethod: domain.EmbeddingMethod{
				File: &domain.FileMethod{},
			},
		},
	}
	a := NewDocumentAssembler(schema)

	_, err := a.Assemble(baseRecord())
	if !errors.Is(err, domain.ErrFieldType) {
		t.Errorf("expected ErrFieldType, got %v", err)
	}
}

func TestAssemble_Deterministic(t *testing.T) {
	a := NewDocumentAssembler(assemblerSchema())

	first, err := a.Assemble(baseRecord())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	second, err := a.Assemble(baseRecord())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("ids differ: %q vs %q", first.ID, second.ID)
	}
	for k, v := range first.Fields {
		if second.Fields[k] != v {
			t.Errorf("field %q differs: %v vs %v", k, v, second.Fields[k])
		}
	}
}
