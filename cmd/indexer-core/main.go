package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/searchlight-oss/indexer-core/internal/adapters/driven/encoder"
	"github.com/searchlight-oss/indexer-core/internal/adapters/driven/jsonl"
	"github.com/searchlight-oss/indexer-core/internal/adapters/driven/opensearch"
	"github.com/searchlight-oss/indexer-core/internal/adapters/driven/postgres"
	redisqueue "github.com/searchlight-oss/indexer-core/internal/adapters/driven/queue/redis"
	"github.com/searchlight-oss/indexer-core/internal/core/domain"
	"github.com/searchlight-oss/indexer-core/internal/core/ports/driven"
	"github.com/searchlight-oss/indexer-core/internal/core/services"
	"github.com/searchlight-oss/indexer-core/internal/worker"
)

var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "once")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("indexer-core %s starting in %s mode", version, mode)

	opensearchAddrs := getEnv("OPENSEARCH_ADDRESSES", "http://localhost:9200")
	encoderURL := getEnv("ENCODER_URL", "")
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}))
	slog.SetDefault(logger)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== OpenSearch =====
	osConfig := opensearch.DefaultConfig(opensearchAddrs)
	osConfig.Username = getEnv("OPENSEARCH_USERNAME", "")
	osConfig.Password = getEnv("OPENSEARCH_PASSWORD", "")
	osConfig.InsecureSkipTLSVerify = getEnvBool("OPENSEARCH_INSECURE_SKIP_TLS_VERIFY", false)
	osConfig.ResponseTimeout = time.Duration(getEnvInt("OPENSEARCH_TIMEOUT_SEC", 120)) * time.Second

	osClient, err := opensearch.NewClient(osConfig)
	if err != nil {
		log.Fatalf("Failed to create OpenSearch client: %v", err)
	}
	indexes := opensearch.NewProvider(osClient, logger)

	// ===== Encoder (optional; required only for schemas with encoder fields) =====
	var embedder driven.EmbeddingService
	if encoderURL != "" {
		embedder, err = encoder.NewSentenceTransformers(encoder.DefaultConfig(encoderURL))
		if err != nil {
			log.Fatalf("Failed to create encoder client: %v", err)
		}
		log.Println("Encoder service configured")
	}

	// ===== Record source =====
	records := jsonl.NewSource()

	// ===== Run-state store (optional) =====
	var runs driven.RunStore
	if databaseURL != "" {
		log.Println("Connecting to PostgreSQL...")
		dbConfig := postgres.DefaultConfig(databaseURL)
		dbConfig.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
		dbConfig.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 2)
		db, err := postgres.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.InitSchema(ctx); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		runs = postgres.NewRunStore(db)
		log.Println("PostgreSQL connected, run history enabled")
	}

	newEngine := func() *services.IndexingEngine {
		return services.NewIndexingEngine(services.IndexingEngineConfig{
			Indexes:       indexes,
			Records:       records,
			Embedder:      embedder,
			Runs:          runs,
			Logger:        logger,
			BulkChunkSize: getEnvInt("BULK_CHUNK_SIZE", 0),
			BulkWorkers:   getEnvInt("BULK_WORKERS", 0),
		})
	}

	switch mode {
	case "once":
		runOnce(ctx, newEngine)
	case "worker":
		runWorkerMode(ctx, redisURL, newEngine)
	default:
		log.Fatalf("Unknown mode: %s (expected once or worker)", mode)
	}
}

// runOnce drives a single indexing run from SCHEMA_PATH and exits.
func runOnce(ctx context.Context, newEngine func() *services.IndexingEngine) {
	schemaPath := getEnv("SCHEMA_PATH", "")
	if schemaPath == "" {
		log.Fatal("SCHEMA_PATH is required in once mode")
	}

	schema, err := domain.LoadSchema(schemaPath)
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}
	if sources := getEnv("SOURCES", ""); sources != "" {
		schema.SrcFiles = strings.Split(sources, ",")
	}

	engine := newEngine()
	if err := engine.Bind(schema, getEnv("GROUP_ID", ""), getEnv("JOB_ID", "")); err != nil {
		log.Fatalf("Failed to bind schema: %v", err)
	}

	result, err := engine.Run(ctx)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	log.Printf("Run completed: index=%s mode=%s docs_uploaded=%d docs_failed=%d duration_seconds=%.1f",
		result.IndexName, result.Mode,
		result.Stats.DocsUploaded, result.Stats.DocsFailed,
		result.Duration)
}

// runWorkerMode consumes indexing tasks from the Redis queue until shutdown.
func runWorkerMode(ctx context.Context, redisURL string, newEngine func() *services.IndexingEngine) {
	if redisURL == "" {
		log.Fatal("REDIS_URL is required in worker mode")
	}

	log.Println("Connecting to Redis...")
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	taskQueue, err := redisqueue.NewQueue(redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
	if err != nil {
		log.Fatalf("Failed to create task queue: %v", err)
	}

	w := worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      taskQueue,
		NewEngine:      newEngine,
		Logger:         slog.Default(),
		Concurrency:    getEnvInt("WORKER_CONCURRENCY", 2),
		DequeueTimeout: getEnvInt("WORKER_DEQUEUE_TIMEOUT", 5),
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Println("Worker started, processing tasks...")

	<-ctx.Done()

	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
