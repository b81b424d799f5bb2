package services

import (
	"fmt"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

// Refresh-interval values used around bulk loads.
const (
	// InactiveRefreshInterval disables near-real-time refresh for write throughput
	InactiveRefreshInterval = "-1"
	// DefaultRefreshInterval restores read freshness after a run
	DefaultRefreshInterval = "1s"
)

const (
	compressCodec = "best_compression"
	// mem * 0.5 * 0.25 = 16GB * 0.5 * 0.25 = 2048MB
	flushThresholdSize = "2048MB"
)

// BuildIndexTemplate derives the engine index template from a schema. It is
// pure: the schema's own settings are copied, never mutated. The copy gets
// write-optimized defaults for bulk load: refresh disabled, compressing
// codec, raised translog flush threshold. Runs restore the refresh interval
// at the end.
func BuildIndexTemplate(schema *domain.Schema) (*domain.IndexTemplate, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", domain.ErrSchemaInvalid)
	}
	if len(schema.Fields.TextFields) == 0 && len(schema.Fields.VectorFields) == 0 {
		return nil, fmt.Errorf("%w: no fields to map", domain.ErrSchemaInvalid)
	}

	settings := copyMap(schema.Settings)
	index := subMap(settings, "index")
	index["refresh_interval"] = InactiveRefreshInterval
	index["codec"] = compressCodec
	index["translog"] = map[string]any{
		"flush_threshold_size": flushThresholdSize,
	}

	properties := make(map[string]any, len(schema.Fields.TextFields)+len(schema.Fields.VectorFields))
	for name, field := range schema.Fields.TextFields {
		prop := map[string]any{
			"type": field.Type,
		}
		if field.Analyzer != "" {
			prop["analyzer"] = field.Analyzer
		}
		if len(field.Fields) > 0 {
			prop["fields"] = field.Fields
		}
		if field.Index != nil {
			prop["index"] = *field.Index
		}
		properties[name] = prop
	}

	if len(schema.Fields.VectorFields) > 0 {
		index["knn"] = true
		for name, field := range schema.Fields.VectorFields {
			properties[name] = map[string]any{
				"type":      "knn_vector",
				"dimension": field.Dimension,
				"method":    field.ANNMethod,
			}
		}
	}

	return &domain.IndexTemplate{
		Settings: settings,
		Mappings: domain.Mappings{Properties: properties},
	}, nil
}

// copyMap deep-copies nested map values so template mutation never reaches
// the schema's settings.
func copyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if nested, ok := v.(map[string]any); ok {
			out[k] = copyMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}

// subMap returns m[key] as a map, creating it when absent.
func subMap(m map[string]any, key string) map[string]any {
	if nested, ok := m[key].(map[string]any); ok {
		return nested
	}
	nested := make(map[string]any)
	m[key] = nested
	return nested
}
