package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// DocumentAssembler converts raw records into keyed index documents per the
// bound schema. Assembly is deterministic: the same record and schema always
// produce the same document, vector values pending embedding.
type DocumentAssembler struct {
	schema *domain.Schema
}

// NewDocumentAssembler creates an assembler for a validated schema.
func NewDocumentAssembler(schema *domain.Schema) *DocumentAssembler {
	return &DocumentAssembler{schema: schema}
}

// Assemble builds one document from one record. Text fields merge their
// source fields; encoder vector fields carry the merged text until the
// uploader attaches vectors; precomputed vector fields copy the record value
// verbatim.
func (a *DocumentAssembler) Assemble(record domain.RawRecord) (*domain.IndexDocument, error) {
	id, err := domain.CompositeID(record, a.schema.DocIDFields)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]any, len(a.schema.Fields.TextFields)+len(a.schema.Fields.VectorFields)+1)

	for name, field := range a.schema.Fields.TextFields {
		value, err := mergeSourceFields(name, field.Type, field.SrcField, record)
		if err != nil {
			return nil, err
		}
		fields[name] = value
	}

	for name, field := range a.schema.Fields.VectorFields {
		kind, err := field.EmbeddingMethod.Kind()
		if err != nil {
			return nil, err
		}
		switch kind {
		case domain.EmbeddingEncoder:
			value, err := mergeSourceFields(name, "", field.SrcField, record)
			if err != nil {
				return nil, err
			}
			fields[name] = value
		case domain.EmbeddingFile:
			if len(field.SrcField) != 1 {
				return nil, fmt.Errorf("%w: vector field %q reads a precomputed file and must list exactly one src_field", domain.ErrSchemaInvalid, name)
			}
			value, ok := record[field.SrcField[0]]
			if !ok {
				return nil, fmt.Errorf("%w: record missing vector field %q", domain.ErrFieldType, field.SrcField[0])
			}
			fields[name] = value
		}
	}

	fields[domain.InternalFieldName("group_id")] = a.schema.GroupID

	return &domain.IndexDocument{ID: id, Fields: fields}, nil
}

// mergeSourceFields applies the source-merge rule for one target field:
// one source field is coerced and validated as the declared type, several
// are space-joined in listed order, none falls back to the record value
// under the field's own name.
func mergeSourceFields(name, fieldType string, srcFields []string, record domain.RawRecord) (any, error) {
	switch len(srcFields) {
	case 1:
		value, ok := record[srcFields[0]]
		if !ok {
			return nil, fmt.Errorf("%w: record missing source field %q", domain.ErrFieldType, srcFields[0])
		}
		if fieldType == "integer" {
			if err := validateInteger(value); err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
			return value, nil
		}
		return stringify(value), nil
	case 0:
		value, ok := record[name]
		if !ok {
			return nil, fmt.Errorf("%w: record missing field %q", domain.ErrFieldType, name)
		}
		return stringify(value), nil
	default:
		parts := make([]string, 0, len(srcFields))
		for _, src := range srcFields {
			value, ok := record[src]
			if !ok {
				return nil, fmt.Errorf("%w: record missing source field %q", domain.ErrFieldType, src)
			}
			parts = append(parts, stringify(value))
		}
		return strings.Join(parts, " "), nil
	}
}

// validateInteger checks the record value parses as an integer without
// changing it: the original value is what gets indexed.
func validateInteger(value any) error {
	switch v := value.(type) {
	case int, int32, int64, uint, uint32, uint64:
		return nil
	case float64:
		if v != float64(int64(v)) {
			return fmt.Errorf("%w: %v is not an integer", domain.ErrFieldType, v)
		}
		return nil
	case string:
		if _, err := strconv.Atoi(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%w: %q is not an integer", domain.ErrFieldType, v)
		}
		return nil
	default:
		return fmt.Errorf("%w: %T is not an integer", domain.ErrFieldType, value)
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
