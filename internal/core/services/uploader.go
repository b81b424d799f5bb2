package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
	"github.com/searchlight-oss/indexer-core/internal/core/ports/driven"
)

const (
	// DefaultBulkChunkSize is the document count per underlying bulk request
	DefaultBulkChunkSize = 500
	// DefaultBulkWorkers bounds the bulk sub-request worker pool
	DefaultBulkWorkers = 4
)

// BatchUploader owns the bulk-write protocol: vector attachment, chunking,
// parallel bulk submit, per-item failure reporting. A batch counts as
// uploaded once every item has been attempted; failed items are reported in
// the BulkReport, never retried here.
type BatchUploader struct {
	embedder  driven.EmbeddingService
	chunkSize int
	workers   int
	logger    *slog.Logger
}

// BatchUploaderConfig holds dependencies for BatchUploader.
type BatchUploaderConfig struct {
	Embedder driven.EmbeddingService
	Logger   *slog.Logger

	// ChunkSize is the document count per bulk request (default 500)
	ChunkSize int

	// Workers is the bulk worker pool width (default 4)
	Workers int
}

// NewBatchUploader creates a new batch uploader.
func NewBatchUploader(cfg BatchUploaderConfig) *BatchUploader {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultBulkChunkSize
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultBulkWorkers
	}
	return &BatchUploader{
		embedder:  cfg.Embedder,
		chunkSize: chunkSize,
		workers:   workers,
		logger:    logger,
	}
}

// Upload attaches vectors to the batch and submits it to index. The batch
// buffer is cleared after the attempt; on a fatal error (embedding failure,
// transport failure) the buffer is left intact and nothing more is written.
func (u *BatchUploader) Upload(ctx context.Context, index driven.SearchIndex, schema *domain.Schema, batch *domain.Batch) (domain.BulkReport, error) {
	if batch.Len() == 0 {
		return domain.BulkReport{}, nil
	}

	if err := u.attachVectors(ctx, schema, batch.Docs); err != nil {
		return domain.BulkReport{}, err
	}

	u.logger.Info("uploading batch", "index", schema.IndexName, "docs", batch.Len())

	chunks := splitChunks(batch.Docs, u.chunkSize)
	results := make([][]domain.BulkItemError, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			itemErrs, err := index.Bulk(gctx, chunk)
			if err != nil {
				return fmt.Errorf("bulk submit: %w", err)
			}
			results[i] = itemErrs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BulkReport{}, err
	}

	var report domain.BulkReport
	for i, itemErrs := range results {
		for _, itemErr := range itemErrs {
			u.logger.Error("document failed to index",
				"index", schema.IndexName,
				"doc_id", itemErr.DocID,
				"status", itemErr.Status,
				"reason", itemErr.Reason,
			)
		}
		report.Merge(domain.BulkReport{
			Total:     len(chunks[i]),
			Succeeded: len(chunks[i]) - len(itemErrs),
			Failed:    len(itemErrs),
			Errors:    itemErrs,
		})
	}

	batch.Reset()
	return report, nil
}

// attachVectors obtains vectors once per vector field per batch and writes
// them back positionally. Fields are processed sequentially to bound peak
// memory and encoder load.
func (u *BatchUploader) attachVectors(ctx context.Context, schema *domain.Schema, docs []*domain.IndexDocument) error {
	if len(schema.Fields.VectorFields) == 0 {
		return nil
	}

	names := make([]string, 0, len(schema.Fields.VectorFields))
	for name := range schema.Fields.VectorFields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		field := schema.Fields.VectorFields[name]
		kind, err := field.EmbeddingMethod.Kind()
		if err != nil {
			return err
		}
		if kind != domain.EmbeddingEncoder {
			// precomputed vectors are already in place
			continue
		}

		if u.embedder == nil {
			return fmt.Errorf("%w: field %q needs an encoder but none is configured", domain.ErrEmbedding, name)
		}

		u.logger.Info("embedding field", "field", name, "docs", len(docs))
		texts := make([]string, len(docs))
		for i, doc := range docs {
			text, ok := doc.Fields[name].(string)
			if !ok {
				return fmt.Errorf("%w: document %s field %q holds %T, want text", domain.ErrFieldType, doc.ID, name, doc.Fields[name])
			}
			texts[i] = text
		}

		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: field %q: %v", domain.ErrEmbedding, name, err)
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: field %q: got %d vectors for %d texts", domain.ErrEmbedding, name, len(vectors), len(texts))
		}
		for i, doc := range docs {
			doc.Fields[name] = vectors[i]
		}
	}
	return nil
}

// splitChunks partitions docs into n-sized chunks, preserving order.
func splitChunks(docs []*domain.IndexDocument, n int) [][]*domain.IndexDocument {
	var chunks [][]*domain.IndexDocument
	for start := 0; start < len(docs); start += n {
		end := start + n
		if end > len(docs) {
			end = len(docs)
		}
		chunks = append(chunks, docs[start:end])
	}
	return chunks
}
