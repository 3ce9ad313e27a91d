package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"brainlattice/internal/config"
	"brainlattice/internal/db"
	"brainlattice/internal/handlers"
	"brainlattice/internal/queue"
	"brainlattice/internal/repositories"
	"brainlattice/internal/routes"
	"brainlattice/internal/services"
	"brainlattice/internal/workers"
)

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Id, X-Gemini-API-Key, X-OpenAI-API-Key")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewServer wires every subsystem from environment configuration. Each
// external dependency degrades to a local or in-process mode when its
// variables are absent, so a bare `go run` still serves something useful.
func NewServer() *http.Server {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)
	cfg := config.Load()

	repo := initializeDatabase(logger, cfg)
	jobStore := initializeJobStore(logger, cfg)
	blobStore := initializeBlobStore(logger, cfg)

	h := &routes.Handlers{
		Health: handlers.HealthCheckHandler,
	}

	if repo != nil {
		workerLogger := &simpleLogger{logger: logger}
		pipeline := workers.NewPipelineFactory(repo, workerLogger)

		// With no queue provider the inline queue calls straight back into
		// the dispatcher, which is created below; the closure covers the gap.
		// QStash retries failed deliveries itself, so the inline path wraps
		// the dispatcher with the same retry policy.
		var dispatcher *workers.TaskDispatcher
		var taskQueue queue.TaskQueue
		dispatcherConfig := workers.DefaultWorkerConfig("task-dispatcher")
		workerURL := strings.TrimRight(cfg.WorkerPublicURL, "/") + "/worker"
		if cfg.HasQueue() {
			taskQueue = queue.NewQStashQueue(cfg.QStashURL, cfg.QStashToken)
			logger.Println("✅ QStash task queue configured:", workerURL)
		} else {
			inlineHandler := workers.WithRetries(dispatcherConfig, workerLogger,
				func(ctx context.Context, p queue.TaskPayload) error {
					return dispatcher.Handle(ctx, p)
				})
			taskQueue = queue.NewInlineQueue(queue.TaskHandler(inlineHandler))
			logger.Println("⚠️  No task queue configured - running tasks in-process")
		}

		ingestion := workers.NewIngestionProcessor(workers.IngestionProcessorConfig{
			BlobStore: blobStore,
			JobStore:  jobStore,
			Repo:      repo,
			Pipeline:  pipeline,
			Logger:    workerLogger,
		})
		export := workers.NewExportProcessor(workers.ExportProcessorConfig{
			BlobStore: blobStore,
			Repo:      repo,
			Queue:     taskQueue,
			WorkerURL: workerURL,
			Pipeline:  pipeline,
			Logger:    workerLogger,
		})
		dispatcher = workers.NewTaskDispatcher(workers.TaskDispatcherConfig{
			WorkerConfig: dispatcherConfig,
			Ingestion:    ingestion,
			Export:       export,
			Logger:       workerLogger,
		})
		pool := workers.NewWorkerPool()
		pool.AddWorker(dispatcher)
		if err := pool.StartAll(context.Background()); err != nil {
			logger.Printf("⚠️  Failed to start worker pool: %v", err)
		} else {
			logger.Println("✅ Worker pool started")
		}

		orchestrator := services.NewOrchestrator(blobStore, jobStore, repo, taskQueue, workerURL)

		keys := handlers.KeyDefaults{Gemini: cfg.GeminiAPIKey, OpenAI: cfg.OpenAIAPIKey}
		h.Ingest = handlers.NewIngestHandler(orchestrator, jobStore, keys, logger)
		h.Worker = handlers.NewWorkerHandler(dispatcher, pool, logger)
		h.Export = handlers.NewExportHandler(orchestrator, repo, blobStore, keys, logger)
		h.Project = handlers.NewProjectHandler(repo, logger)

		logger.Println("✅ Ingestion and export pipelines initialized")
	} else {
		logger.Println("⚠️  Database not available - pipeline endpoints will not be registered")
	}

	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      corsMiddleware(router),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// initializeDatabase connects the relational store and runs migrations.
// Returns nil when the database is unreachable or unconfigured.
func initializeDatabase(logger *log.Logger, cfg *config.Settings) repositories.ProjectRepository {
	if cfg.DatabaseURL == "" {
		logger.Println("⚠️  DATABASE_URL not set - relational store disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, db.DefaultPostgresConfig(cfg.DatabaseURL))
	if err != nil {
		logger.Printf("⚠️  Failed to connect to Postgres: %v", err)
		return nil
	}
	if err := db.Migrate(ctx, pool); err != nil {
		logger.Printf("⚠️  Failed to run migrations: %v", err)
		pool.Close()
		return nil
	}

	logger.Println("✅ Postgres connected and migrated")
	return repositories.NewPostgresProjectRepository(pool)
}

// initializeJobStore prefers Redis and falls back to process memory.
func initializeJobStore(logger *log.Logger, cfg *config.Settings) repositories.JobStore {
	if cfg.HasRedis() {
		client := db.NewRedisClient(db.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Printf("⚠️  Redis unreachable (%v) - using in-memory job store", err)
			_ = client.Close()
			return repositories.NewMemoryJobStore()
		}

		logger.Println("✅ Redis job store connected:", cfg.RedisAddr)
		return repositories.NewRedisJobStore(client)
	}

	logger.Println("⚠️  REDIS_ADDR not set - using in-memory job store")
	return repositories.NewMemoryJobStore()
}

// initializeBlobStore prefers S3-compatible storage and falls back to a
// local directory mirror of the same keys.
func initializeBlobStore(logger *log.Logger, cfg *config.Settings) repositories.BlobStore {
	if cfg.HasS3() {
		store, err := repositories.NewS3BlobStore(repositories.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKeyID,
			SecretKey: cfg.S3SecretKey,
			UseSSL:    cfg.S3UseSSL,
		})
		if err != nil {
			logger.Printf("⚠️  Failed to create S3 blob store: %v", err)
		} else {
			logger.Println("✅ S3 blob store configured:", cfg.S3Bucket)
			return store
		}
	}

	store, err := repositories.NewLocalBlobStore(cfg.LocalStorageDir)
	if err != nil {
		logger.Printf("⚠️  Failed to create local blob store at %s: %v", cfg.LocalStorageDir, err)
		return nil
	}
	logger.Println("⚠️  Using local blob storage:", cfg.LocalStorageDir)
	return store
}

// simpleLogger wraps log.Logger to implement workers.Logger interface
type simpleLogger struct {
	logger *log.Logger
}

func (l *simpleLogger) Info(msg string, args ...interface{}) {
	l.logger.Printf("[INFO] "+msg, args...)
}

func (l *simpleLogger) Error(msg string, args ...interface{}) {
	l.logger.Printf("[ERROR] "+msg, args...)
}

func (l *simpleLogger) Warn(msg string, args ...interface{}) {
	l.logger.Printf("[WARN] "+msg, args...)
}

func (l *simpleLogger) Debug(msg string, args ...interface{}) {
	l.logger.Printf("[DEBUG] "+msg, args...)
}
