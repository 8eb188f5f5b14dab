package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
	"github.com/kirillkom/textbook-rag/internal/core/usecase"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/cache/memory"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/cache/redis"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/chunking"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/extractor"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/queue/nats"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/rerank"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/textbook-rag/internal/observability/metrics"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue ports.MessageQueue

	IngestUC    *usecase.IngestDocumentUseCase
	DocumentsUC *usecase.DocumentUseCase
	ProcessUC   *usecase.ProcessDocumentUseCase
	RetrievalUC *usecase.RetrievalUseCase
	FeedbackUC  *usecase.FeedbackUseCase
	QuizUC      *usecase.QuizUseCase

	HTTPMetrics   *metrics.HTTPServerMetrics
	WorkerMetrics *metrics.WorkerMetrics

	closeFn func()
}

// New wires every adapter. service labels logs and metrics ("api" or "worker").
func New(ctx context.Context, cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docRepo := postgres.NewDocumentRepository(db)
	feedbackRepo := postgres.NewFeedbackRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	workerMetrics := metrics.NewWorkerMetrics(service)
	dependencyMetrics := httpMetrics.Dependencies()
	if service == "worker" {
		dependencyMetrics = workerMetrics.Dependencies()
	}
	executor := resilience.NewExecutor(resilienceConfig(cfg)).
		WithLogger(logger).
		WithObserver(dependencyMetrics)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		QueueGroup:         cfg.NATSQueueGroup,
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		Timeout:           cfg.OllamaTimeout,
		RequestsPerSecond: cfg.OllamaRequestsPerSecond,
		Burst:             cfg.OllamaBurst,
		EmbedBatchSize:    cfg.OllamaEmbedBatchSize,
		Executor:          executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)
	var critic ports.AnswerCritic
	if cfg.CriticEnabled {
		critic = ollama.NewCritic(ollamaClient, cfg.CriticModel, cfg.CriticTemperature)
	}

	qdrantOpts := qdrant.Options{
		APIKey:   cfg.QdrantAPIKey,
		Timeout:  cfg.QdrantTimeout,
		Executor: executor,
	}
	vectorDB := qdrant.New(cfg.QdrantURL, qdrantOpts)
	feedbackStore := qdrant.NewFeedbackClient(cfg.QdrantURL, cfg.QdrantFeedbackCollection, qdrantOpts)

	var reranker ports.Reranker = rerank.NewLexical()
	if cfg.RerankerURL != "" {
		reranker = rerank.NewCrossEncoder(cfg.RerankerURL, rerank.CrossEncoderOptions{
			Model:    cfg.RerankerModel,
			Timeout:  cfg.RerankerTimeout,
			Executor: executor,
		})
	}

	cache, closeCache, err := newChunkCache(cfg)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init chunk cache: %w", err)
	}

	registry := extractor.NewDefaultRegistry(storage, cfg.MaxUploadBytes, logger)
	selector := chunking.NewSelector(chunking.SizeThresholdPolicy{
		ThresholdBytes: int64(cfg.BookSizeThresholdMB) * 1024 * 1024,
	}, logger)
	var chunker ports.DocumentChunker = chunking.NewService(registry, selector, logger)
	if cache != nil {
		chunker = chunking.NewCachedChunker(chunker, cache, logger)
	}

	retrievalUC := usecase.NewRetrievalUseCase(usecase.RetrievalDeps{
		Embedder:  embedder,
		VectorDB:  vectorDB,
		Reranker:  reranker,
		Feedback:  feedbackStore,
		Generator: generator,
		Critic:    critic,
		Observer:  httpMetrics.Retrieval(),
		Logger:    logger,
	}, retrievalConfig(cfg.Retrieval))

	app := &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,

		IngestUC:    usecase.NewIngestDocumentUseCase(docRepo, storage, queue, logger),
		DocumentsUC: usecase.NewDocumentUseCase(docRepo, storage, vectorDB, cache, logger),
		ProcessUC:   usecase.NewProcessDocumentUseCase(docRepo, chunker, embedder, vectorDB, workerMetrics, logger),
		RetrievalUC: retrievalUC,
		FeedbackUC:  usecase.NewFeedbackUseCase(embedder, feedbackStore, feedbackRepo, logger),
		QuizUC:      usecase.NewQuizUseCase(retrievalUC, generator, logger),

		HTTPMetrics:   httpMetrics,
		WorkerMetrics: workerMetrics,

		closeFn: func() {
			queue.Close()
			closeCache()
			_ = db.Close()
		},
	}
	logger.Info("bootstrap_completed",
		"chunk_cache", cfg.ChunkCacheBackend,
		"reranker", rerankerName(cfg),
	)
	return app, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// newChunkCache returns a nil cache for backend "none".
func newChunkCache(cfg config.Config) (ports.ChunkCache, func(), error) {
	noop := func() {}
	switch cfg.ChunkCacheBackend {
	case "", "memory":
		cache, err := memory.New(cfg.ChunkCacheSize)
		if err != nil {
			return nil, noop, err
		}
		return cache, noop, nil
	case "redis":
		cache := redis.New(redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		})
		return cache, func() { _ = cache.Close() }, nil
	case "none":
		return nil, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown chunk cache backend %q", cfg.ChunkCacheBackend)
	}
}

// resilienceConfig applies the env knobs to every dependency. Ollama backs
// off longer; the reranker makes at most two attempts and trips sooner.
func resilienceConfig(cfg config.Config) resilience.Config {
	base := resilience.DefaultPolicy()
	if cfg.RetryMaxAttempts > 0 {
		base.Retry.MaxAttempts = cfg.RetryMaxAttempts
	}
	base.Breaker.Enabled = cfg.BreakerEnabled
	if cfg.BreakerOpenTimeout > 0 {
		base.Breaker.OpenTimeout = cfg.BreakerOpenTimeout
	}

	llm := base
	llm.Retry.InitialBackoff = 500 * time.Millisecond
	llm.Retry.MaxBackoff = 4 * time.Second

	reranker := base
	reranker.Retry.MaxAttempts = min(base.Retry.MaxAttempts, 2)
	reranker.Breaker.MinRequests = 5

	return resilience.Config{
		Default: base,
		Dependencies: map[string]resilience.Policy{
			"ollama":   llm,
			"reranker": reranker,
		},
	}
}

func retrievalConfig(rc config.RetrievalConfig) usecase.RetrievalConfig {
	return usecase.RetrievalConfig{
		DefaultLimit:       rc.DefaultLimit,
		RerankTopK:         rc.RerankTopK,
		FeedbackThreshold:  rc.FeedbackThreshold,
		RelevanceThreshold: rc.RelevanceThreshold,
		Weights: usecase.FusionWeights{
			Original:       rc.Weights.Original,
			Rerank:         rc.Weights.Rerank,
			Feedback:       rc.Weights.Feedback,
			FeedbackDirect: rc.Weights.FeedbackDirect,
		},
	}
}

func rerankerName(cfg config.Config) string {
	if cfg.RerankerURL != "" {
		return "cross-encoder"
	}
	return "lexical"
}
