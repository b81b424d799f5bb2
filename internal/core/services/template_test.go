package services

import (
	"errors"
	"testing"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
)

func textOnlySchema() *domain.Schema {
	return &domain.Schema{
		IndexName: "articles",
		Settings: map[string]any{
			"index": map[string]any{
				"number_of_shards": 2,
			},
		},
		Fields: domain.FieldSet{
			TextFields: map[string]domain.TextField{
				"title": {Type: "text", Analyzer: "english", SrcField: []string{"headline"}},
				"url":   {Type: "keyword", SrcField: []string{"url"}},
			},
		},
		DocIDFields:  []string{"id"},
		IndexingType: domain.IndexingWhole,
		BatchSize:    100,
	}
}

func vectorSchema() *domain.Schema {
	s := textOnlySchema()
	s.Fields.VectorFields = map[string]domain.VectorField{
		"title_vec": {
			Dimension: 384,
			SrcField:  []string{"headline"},
			ANNMethod: map[string]any{"name": "hnsw", "engine": "nmslib"},
			EmbeddingMethod: domain.EmbeddingMethod{
				Encoder: &domain.EncoderMethod{},
			},
		},
	}
	return s
}

func TestBuildIndexTemplate_WriteOptimizedSettings(t *testing.T) {
	template, err := BuildIndexTemplate(textOnlySchema())
	if err != nil {
		t.Fatalf("BuildIndexTemplate: %v", err)
	}

	index, ok := template.Settings["index"].(map[string]any)
	if !ok {
		t.Fatalf("settings.index missing: %v", template.Settings)
	}
	if index["refresh_interval"] != InactiveRefreshInterval {
		t.Errorf("refresh_interval = %v", index["refresh_interval"])
	}
	if index["codec"] != "best_compression" {
		t.Errorf("codec = %v", index["codec"])
	}
	translog, ok := index["translog"].(map[string]any)
	if !ok || translog["flush_threshold_size"] != "2048MB" {
		t.Errorf("translog = %v", index["translog"])
	}
	if index["number_of_shards"] != 2 {
		t.Errorf("schema settings should be carried over, got %v", index["number_of_shards"])
	}
}

func TestBuildIndexTemplate_DoesNotMutateSchema(t *testing.T) {
	schema := textOnlySchema()
	if _, err := BuildIndexTemplate(schema); err != nil {
		t.Fatalf("BuildIndexTemplate: %v", err)
	}

	index := schema.Settings["index"].(map[string]any)
	if _, ok := index["refresh_interval"]; ok {
		t.Error("schema settings were mutated")
	}
	if _, ok := index["codec"]; ok {
		t.Error("schema settings were mutated")
	}
	if len(index) != 1 {
		t.Errorf("schema settings grew: %v", index)
	}
}

func TestBuildIndexTemplate_TextMappings(t *testing.T) {
	template, err := BuildIndexTemplate(textOnlySchema())
	if err != nil {
		t.Fatalf("BuildIndexTemplate: %v", err)
	}

	title, ok := template.Mappings.Properties["title"].(map[string]any)
	if !ok {
		t.Fatalf("title mapping missing")
	}
	if title["type"] != "text" || title["analyzer"] != "english" {
		t.Errorf("title mapping = %v", title)
	}

	url := template.Mappings.Properties["url"].(map[string]any)
	if url["type"] != "keyword" {
		t.Errorf("url mapping = %v", url)
	}
	if _, ok := url["analyzer"]; ok {
		t.Error("url should not carry an analyzer")
	}

	index := template.Settings["index"].(map[string]any)
	if _, ok := index["knn"]; ok {
		t.Error("knn must be absent without vector fields")
	}
}

func TestBuildIndexTemplate_VectorMappings(t *testing.T) {
	template, err := BuildIndexTemplate(vectorSchema())
	if err != nil {
		t.Fatalf("BuildIndexTemplate: %v", err)
	}

	index := template.Settings["index"].(map[string]any)
	if index["knn"] != true {
		t.Errorf("knn = %v", index["knn"])
	}

	vec, ok := template.Mappings.Properties["title_vec"].(map[string]any)
	if !ok {
		t.Fatalf("title_vec mapping missing")
	}
	if vec["type"] != "knn_vector" {
		t.Errorf("type = %v", vec["type"])
	}
	if vec["dimension"] != 384 {
		t.Errorf("dimension = %v", vec["dimension"])
	}
	method, ok := vec["method"].(map[string]any)
	if !ok || method["name"] != "hnsw" {
		t.Errorf("method = %v", vec["method"])
	}
}

func TestBuildIndexTemplate_NoShardSettings(t *testing.T) {
	schema := textOnlySchema()
	schema.Settings = nil

	template, err := BuildIndexTemplate(schema)
	if err != nil {
		t.Fatalf("BuildIndexTemplate: %v", err)
	}
	index, ok := template.Settings["index"].(map[string]any)
	if !ok {
		t.Fatalf("index settings missing with nil schema settings")
	}
	if index["refresh_interval"] != InactiveRefreshInterval {
		t.Errorf("refresh_interval = %v", index["refresh_interval"])
	}
}

func TestBuildIndexTemplate_Invalid(t *testing.T) {
	if _, err := BuildIndexTemplate(nil); !errors.Is(err, domain.ErrSchemaInvalid) {
		t.Errorf("nil schema: %v", err)
	}

	schema := textOnlySchema()
	schema.Fields = domain.FieldSet{}
	if _, err := BuildIndexTemplate(schema); !errors.Is(err, domain.ErrSchemaInvalid) {
		t.Errorf("no fields: %v", err)
	}
}
