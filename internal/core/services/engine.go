package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/searchlight-oss/indexer-core/internal/core/domain"
	"github.com/searchlight-oss/indexer-core/internal/core/ports/driven"
)

// IndexingEngine drives one indexing run as a small state machine:
// Idle -> SchemaBound -> {WholeRun | IncrementalRun} -> Completed | Failed.
// An engine is not safe for concurrent runs; callers serialize runs against
// one index name.
type IndexingEngine struct {
	indexes  driven.SearchIndexProvider
	records  driven.RecordSource
	runs     driven.RunStore
	uploader *BatchUploader
	logger   *slog.Logger

	schema    *domain.Schema
	assembler *DocumentAssembler
	index     driven.SearchIndex
	state     *domain.RunState
}

// IndexingEngineConfig holds dependencies for IndexingEngine.
// Runs is optional; a nil RunStore disables run persistence.
type IndexingEngineConfig struct {
	Indexes  driven.SearchIndexProvider
	Records  driven.RecordSource
	Embedder driven.EmbeddingService
	Runs     driven.RunStore
	Logger   *slog.Logger

	// BulkChunkSize and BulkWorkers tune the uploader (defaults 500 / 4)
	BulkChunkSize int
	BulkWorkers   int
}

// NewIndexingEngine creates an idle engine.
func NewIndexingEngine(cfg IndexingEngineConfig) *IndexingEngine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexingEngine{
		indexes: cfg.Indexes,
		records: cfg.Records,
		runs:    cfg.Runs,
		uploader: NewBatchUploader(BatchUploaderConfig{
			Embedder:  cfg.Embedder,
			Logger:    logger,
			ChunkSize: cfg.BulkChunkSize,
			Workers:   cfg.BulkWorkers,
		}),
		logger: logger,
	}
}

// Phase returns the engine's state machine position.
func (e *IndexingEngine) Phase() domain.RunPhase {
	if e.state == nil {
		return domain.PhaseIdle
	}
	return e.state.Phase
}

// Bind validates the schema and attaches the run-scoped metadata, moving the
// engine to SchemaBound. Rebinding is allowed once a prior run is terminal.
func (e *IndexingEngine) Bind(schema *domain.Schema, groupID, jobID string) error {
	if e.state != nil && !e.state.Terminal() && e.state.Phase != domain.PhaseIdle {
		return fmt.Errorf("engine is mid-run (%s), cannot bind", e.state.Phase)
	}
	if schema == nil {
		return fmt.Errorf("%w: nil schema", domain.ErrSchemaInvalid)
	}
	if err := schema.Validate(); err != nil {
		return err
	}

	schema.GroupID = groupID
	schema.JobID = jobID

	e.schema = schema
	e.assembler = NewDocumentAssembler(schema)
	e.index = e.indexes.Index(schema.IndexName)
	e.state = domain.NewRunState(jobID, groupID, schema.IndexName, schema.IndexingType)
	e.state.MarkBound()
	return nil
}

// Run executes the bound schema's indexing mode. Precondition violations
// (index exists for WHOLE, index missing for INCREMENTAL) surface before any
// write. Past admission, per-item write failures accumulate in the result
// instead of aborting: inspect Stats.DocsFailed, a run can "succeed" with
// documents missing.
func (e *IndexingEngine) Run(ctx context.Context) (*domain.RunResult, error) {
	if e.state == nil || e.state.Phase != domain.PhaseSchemaBound {
		return nil, fmt.Errorf("no schema bound (phase %s)", e.Phase())
	}

	start := time.Now()
	e.state.MarkRunning()
	e.saveState(ctx)

	e.logger.Info("starting indexing run",
		"index", e.schema.IndexName,
		"mode", e.schema.IndexingType,
		"job_id", e.schema.JobID,
		"group_id", e.schema.GroupID,
	)

	var err error
	switch e.schema.IndexingType {
	case domain.IndexingWhole:
		err = e.runWhole(ctx)
	case domain.IndexingIncremental:
		err = e.runIncremental(ctx)
	default:
		err = fmt.Errorf("%w: unknown indexing type %q", domain.ErrSchemaInvalid, e.schema.IndexingType)
	}

	duration := time.Since(start).Seconds()
	if err != nil {
		e.state.MarkFailed(err.Error())
		e.saveState(ctx)
		e.logger.Error("indexing run failed",
			"index", e.schema.IndexName,
			"job_id", e.schema.JobID,
			"error", err,
		)
		return &domain.RunResult{
			JobID:     e.schema.JobID,
			IndexName: e.schema.IndexName,
			Mode:      e.schema.IndexingType,
			Success:   false,
			Stats:     e.state.Stats,
			Duration:  duration,
		}, err
	}

	if count, countErr := e.index.Count(ctx); countErr == nil {
		e.state.Stats.IndexDocCount = int(count)
	}

	e.state.MarkCompleted()
	e.saveState(ctx)

	e.logger.Info("indexing run completed",
		"index", e.schema.IndexName,
		"job_id", e.schema.JobID,
		"duration_seconds", duration,
		"docs_read", e.state.Stats.DocsRead,
		"docs_uploaded", e.state.Stats.DocsUploaded,
		"docs_failed", e.state.Stats.DocsFailed,
		"index_doc_count", e.state.Stats.IndexDocCount,
	)

	return &domain.RunResult{
		JobID:     e.schema.JobID,
		IndexName: e.schema.IndexName,
		Mode:      e.schema.IndexingType,
		Success:   true,
		Stats:     e.state.Stats,
		Duration:  duration,
	}, nil
}

// runWhole rebuilds the index from scratch. The exclusive create guarantees
// a whole run never silently appends to a stale index. Records stream
// through batches of schema.BatchSize. An unhandled error mid-run leaves the
// index partially populated with refresh disabled.
func (e *IndexingEngine) runWhole(ctx context.Context) error {
	template, err := BuildIndexTemplate(e.schema)
	if err != nil {
		return err
	}

	if err := e.index.Create(ctx, template); err != nil {
		return fmt.Errorf("create index %s: %w", e.schema.IndexName, err)
	}
	e.logger.Info("index created", "index", e.schema.IndexName)

	batch := &domain.Batch{}
	err = e.records.Stream(ctx, e.schema.SrcFiles, func(record domain.RawRecord) error {
		doc, err := e.assembler.Assemble(record)
		if err != nil {
			return err
		}
		batch.Add(doc)
		e.state.Stats.DocsRead++
		if batch.Len() >= int(e.schema.BatchSize) {
			return e.uploadBatch(ctx, batch)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := e.uploadBatch(ctx, batch); err != nil {
		return err
	}

	return e.finishRun(ctx)
}

// runIncremental upserts new documents into an existing index, deleting
// stale documents sharing any new document's dedup value first. The delete
// and re-insert are not atomic: a crash in between leaves a visible gap
// until the run is retried end to end.
func (e *IndexingEngine) runIncremental(ctx context.Context) error {
	exists, err := e.index.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", e.schema.IndexName, err)
	}
	if !exists {
		return fmt.Errorf("index %s: %w", e.schema.IndexName, domain.ErrIndexNotFound)
	}

	if err := e.index.SetRefreshInterval(ctx, InactiveRefreshInterval); err != nil {
		return fmt.Errorf("disable refresh interval: %w", err)
	}
	e.logger.Info("refresh interval off", "index", e.schema.IndexName)

	// assemble everything up front; the dedup set needs all new documents
	var docs []*domain.IndexDocument
	err = e.records.Stream(ctx, e.schema.SrcFiles, func(record domain.RawRecord) error {
		doc, err := e.assembler.Assemble(record)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		e.state.Stats.DocsRead++
		return nil
	})
	if err != nil {
		return err
	}

	values, err := domain.DedupValues(docs, e.schema.DedupField)
	if err != nil {
		return err
	}
	e.state.Stats.DedupValues = len(values)

	e.logger.Info("deleting superseded documents",
		"index", e.schema.IndexName,
		"dedup_field", e.schema.DedupField,
		"values", len(values),
	)
	if err := e.index.DeleteByFieldValues(ctx, e.schema.DedupField, values); err != nil {
		return fmt.Errorf("delete superseded documents: %w", err)
	}

	batch := &domain.Batch{}
	for _, doc := range docs {
		batch.Add(doc)
		if batch.Len() >= int(e.schema.BatchSize) {
			if err := e.uploadBatch(ctx, batch); err != nil {
				return err
			}
		}
	}
	if err := e.uploadBatch(ctx, batch); err != nil {
		return err
	}

	return e.finishRun(ctx)
}

func (e *IndexingEngine) uploadBatch(ctx context.Context, batch *domain.Batch) error {
	if batch.Len() == 0 {
		return nil
	}
	report, err := e.uploader.Upload(ctx, e.index, e.schema, batch)
	if err != nil {
		return err
	}
	e.state.Stats.Batches++
	e.state.Stats.DocsUploaded += report.Succeeded
	e.state.Stats.DocsFailed += report.Failed
	return nil
}

// finishRun makes written documents visible and restores the default
// refresh cadence; every successful run ends with it restored.
func (e *IndexingEngine) finishRun(ctx context.Context) error {
	if err := e.index.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh index: %w", err)
	}
	if err := e.index.SetRefreshInterval(ctx, DefaultRefreshInterval); err != nil {
		return fmt.Errorf("restore refresh interval: %w", err)
	}
	e.logger.Info("refresh interval restored", "index", e.schema.IndexName, "interval", DefaultRefreshInterval)
	return nil
}

func (e *IndexingEngine) saveState(ctx context.Context) {
	if e.runs == nil {
		return
	}
	if err := e.runs.Save(ctx, e.state); err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Warn("failed to save run state", "job_id", e.state.JobID, "error", err)
	}
}
