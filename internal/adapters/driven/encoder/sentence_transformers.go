package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
	"github.com/searchlight-oss/indexer-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EmbeddingService = (*SentenceTransformers)(nil)

// SentenceTransformers implements EmbeddingService against a
// sentence-transformers serving endpoint. One call embeds one batch; there
// is no retry and no partial result: a transport error, non-2xx status, or
// malformed body fails the whole batch.
type SentenceTransformers struct {
	endpoint string
	client   *http.Client
}

// Config holds encoder connection configuration.
type Config struct {
	// Endpoint is the model's predict URL
	Endpoint string

	// Timeout bounds one batch call end to end
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(endpoint string) Config {
	return Config{
		Endpoint: endpoint,
		Timeout:  120 * time.Second,
	}
}

// NewSentenceTransformers creates a new encoder client.
func NewSentenceTransformers(cfg Config) (*SentenceTransformers, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("encoder endpoint is required")
	}
	return &SentenceTransformers{
		endpoint: strings.TrimSuffix(cfg.Endpoint, "/"),
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

type encodeRequest struct {
	Sentences []string `json:"sentences"`
}

type encodeResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed returns one vector per text, positionally.
func (s *SentenceTransformers) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(encodeRequest{Sentences: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: encoder returned %s - %s", domain.ErrEmbedding, resp.Status, string(respBody))
	}

	var result encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: malformed encoder response: %v", domain.ErrEmbedding, err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: encoder returned %d vectors for %d sentences", domain.ErrEmbedding, len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}
