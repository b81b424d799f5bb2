package domain

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultBatchSize is used when the schema omits batch_size or carries a
// value that cannot be parsed as a number.
const DefaultBatchSize = 2000

// IndexingType selects how a run writes into the target index.
type IndexingType string

const (
	// IndexingWhole rebuilds the index from scratch; the index must not exist.
	IndexingWhole IndexingType = "WHOLE"
	// IndexingIncremental upserts into an existing index, superseding prior
	// documents that share a dedup value with any new document.
	IndexingIncremental IndexingType = "INCREMENTAL"
)

// UnmarshalYAML rejects unknown indexing types at parse time.
func (t *IndexingType) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	switch IndexingType(s) {
	case IndexingWhole, IndexingIncremental:
		*t = IndexingType(s)
		return nil
	default:
		return fmt.Errorf("%w: indexing_type must be one of [%s %s], got %q",
			ErrSchemaInvalid, IndexingWhole, IndexingIncremental, s)
	}
}

// BatchSize tolerates string-typed values in the schema document.
// A non-numeric value falls back to DefaultBatchSize.
type BatchSize int

func (b *BatchSize) UnmarshalYAML(value *yaml.Node) error {
	var n int
	if err := value.Decode(&n); err == nil {
		*b = BatchSize(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		*b = DefaultBatchSize
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*b = DefaultBatchSize
		return nil
	}
	*b = BatchSize(int(f))
	return nil
}

// TextField describes one text-typed index field and the record keys it is
// assembled from.
type TextField struct {
	// Type is the engine field type, e.g. "text" or "keyword"
	Type string `yaml:"type"`

	// Analyzer optionally names the analyzer for this field
	Analyzer string `yaml:"analyzer,omitempty"`

	// SrcField lists the record keys merged into this field, in order.
	// Empty means the record is read by the field's own name.
	SrcField []string `yaml:"src_field"`

	// Fields optionally carries engine sub-field mappings
	Fields map[string]any `yaml:"fields,omitempty"`

	// Index optionally controls whether the field is searchable
	Index *bool `yaml:"index,omitempty"`
}

// EncoderMethod marks a vector field whose text is embedded by the external
// batch encoder service.
type EncoderMethod struct {
	SentenceTransformer map[string]any `yaml:"sentenceTransformer,omitempty"`
}

// FileMethod marks a vector field whose value is a precomputed vector read
// verbatim from the record.
type FileMethod struct{}

// EmbeddingKind identifies the selected embedding method variant.
type EmbeddingKind int

const (
	EmbeddingNone EmbeddingKind = iota
	EmbeddingEncoder
	EmbeddingFile
)

// EmbeddingMethod is a one-of: exactly one variant must be set.
type EmbeddingMethod struct {
	Encoder *EncoderMethod `yaml:"encoder,omitempty"`
	File    *FileMethod    `yaml:"file,omitempty"`
}

// Kind returns the selected variant, or an error if the schema selected
// neither or both.
func (m EmbeddingMethod) Kind() (EmbeddingKind, error) {
	switch {
	case m.Encoder != nil && m.File != nil:
		return EmbeddingNone, fmt.Errorf("%w: embedding_method selects both encoder and file", ErrSchemaInvalid)
	case m.Encoder != nil:
		return EmbeddingEncoder, nil
	case m.File != nil:
		return EmbeddingFile, nil
	default:
		return EmbeddingNone, fmt.Errorf("%w: embedding_method selects neither encoder nor file", ErrSchemaInvalid)
	}
}

// VectorField describes one vector-typed index field.
type VectorField struct {
	// Dimension is the embedding vector length
	Dimension int `yaml:"dimension"`

	// SrcField lists the record keys merged into the text to embed,
	// or exactly one key holding a precomputed vector
	SrcField []string `yaml:"src_field"`

	// ANNMethod carries the engine's approximate-nearest-neighbor config verbatim
	ANNMethod map[string]any `yaml:"ann_method"`

	// EmbeddingMethod selects how the vector value is produced
	EmbeddingMethod EmbeddingMethod `yaml:"embedding_method"`
}

// FieldSet groups the schema's field declarations.
type FieldSet struct {
	TextFields   map[string]TextField   `yaml:"text_field"`
	VectorFields map[string]VectorField `yaml:"vector_field"`
}

// Schema is the process-scoped index configuration, loaded once per run.
// GroupID and JobID stay empty until a run binds them.
type Schema struct {
	IndexName    string         `yaml:"index_name"`
	Settings     map[string]any `yaml:"settings"`
	Fields       FieldSet       `yaml:"fields"`
	SrcFiles     []string       `yaml:"src_file"`
	DocIDFields  []string       `yaml:"doc_id_fields"`
	DedupField   string         `yaml:"dedup_field"`
	IndexingType IndexingType   `yaml:"indexing_type"`
	BatchSize    BatchSize      `yaml:"batch_size"`

	GroupID string `yaml:"-"`
	JobID   string `yaml:"-"`
}

// ParseSchema parses and validates a schema document, applying defaults:
// missing indexing_type means WHOLE (backward compatibility), missing or
// unparseable batch_size means DefaultBatchSize.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaInvalid, err)
	}
	if s.IndexingType == "" {
		s.IndexingType = IndexingWhole
	}
	if s.BatchSize <= 0 {
		s.BatchSize = DefaultBatchSize
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadSchema reads and parses a schema document from disk.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	s, err := ParseSchema(data)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return s, nil
}

// Validate checks the invariants every run relies on.
func (s *Schema) Validate() error {
	if s.IndexName == "" {
		return fmt.Errorf("%w: index_name is required", ErrSchemaInvalid)
	}
	if len(s.Fields.TextFields) == 0 && len(s.Fields.VectorFields) == 0 {
		return fmt.Errorf("%w: at least one text_field or vector_field is required", ErrSchemaInvalid)
	}
	if len(s.DocIDFields) == 0 {
		return fmt.Errorf("%w: doc_id_fields is required", ErrSchemaInvalid)
	}
	if s.IndexingType == IndexingIncremental && s.DedupField == "" {
		return fmt.Errorf("%w: dedup_field is required for incremental indexing", ErrSchemaInvalid)
	}
	for name, vf := range s.Fields.VectorFields {
		if vf.Dimension <= 0 {
			return fmt.Errorf("%w: vector field %q needs a positive dimension", ErrSchemaInvalid, name)
		}
		kind, err := vf.EmbeddingMethod.Kind()
		if err != nil {
			return fmt.Errorf("vector field %q: %w", name, err)
		}
		if kind == EmbeddingFile && len(vf.SrcField) != 1 {
			return fmt.Errorf("%w: vector field %q uses a precomputed file and must list exactly one src_field", ErrSchemaInvalid, name)
		}
	}
	return nil
}

// IndexTemplate is the engine-side index definition derived from a Schema.
type IndexTemplate struct {
	Settings map[string]any `json:"settings"`
	Mappings Mappings       `json:"mappings"`
}

// Mappings carries per-field engine mappings.
type Mappings struct {
	Properties map[string]any `json:"properties"`
}
