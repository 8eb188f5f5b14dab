package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadIncludesRetrievalDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RERANKER_TOP_K", "")
	t.Setenv("FEEDBACK_SIMILARITY_THRESHOLD", "")
	t.Setenv("RELEVANCE_THRESHOLD", "")
	t.Setenv("FUSION_WEIGHT_ORIGINAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Retrieval.RerankTopK != 5 {
		t.Fatalf("expected default rerank top k 5, got %d", cfg.Retrieval.RerankTopK)
	}
	if cfg.Retrieval.FeedbackThreshold != 0.8 {
		t.Fatalf("expected default feedback threshold 0.8, got %v", cfg.Retrieval.FeedbackThreshold)
	}
	if cfg.Retrieval.RelevanceThreshold != 0.25 {
		t.Fatalf("expected default relevance threshold 0.25, got %v", cfg.Retrieval.RelevanceThreshold)
	}
	if cfg.Retrieval.Weights.Original != 0.45 {
		t.Fatalf("expected default original weight 0.45, got %v", cfg.Retrieval.Weights.Original)
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RERANKER_TOP_K", "12")
	t.Setenv("RELEVANCE_THRESHOLD", "0.4")
	t.Setenv("BOOK_SIZE_THRESHOLD_MB", "8")
	t.Setenv("CHUNK_CACHE_BACKEND", "REDIS")
	t.Setenv("REDIS_TTL", "90m")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")
	t.Setenv("CRITIC_ENABLED", "true")
	t.Setenv("CRITIC_MODEL", "qwen2.5:7b")
	t.Setenv("CRITIC_TEMPERATURE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Retrieval.RerankTopK != 12 {
		t.Fatalf("expected rerank top k 12, got %d", cfg.Retrieval.RerankTopK)
	}
	if cfg.Retrieval.RelevanceThreshold != 0.4 {
		t.Fatalf("expected relevance threshold 0.4, got %v", cfg.Retrieval.RelevanceThreshold)
	}
	if cfg.BookSizeThresholdMB != 8 {
		t.Fatalf("expected book threshold 8, got %d", cfg.BookSizeThresholdMB)
	}
	if cfg.ChunkCacheBackend != "redis" {
		t.Fatalf("expected lowercased cache backend, got %q", cfg.ChunkCacheBackend)
	}
	if cfg.RedisTTL != 90*time.Minute {
		t.Fatalf("expected redis ttl 90m, got %v", cfg.RedisTTL)
	}
	if cfg.BreakerEnabled {
		t.Fatalf("expected breaker disabled")
	}
	if !cfg.CriticEnabled || cfg.CriticModel != "qwen2.5:7b" || cfg.CriticTemperature != 0.1 {
		t.Fatalf("unexpected critic settings enabled=%v model=%q temperature=%v", cfg.CriticEnabled, cfg.CriticModel, cfg.CriticTemperature)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RERANKER_TOP_K", "many")
	t.Setenv("RELEVANCE_THRESHOLD", "high")
	t.Setenv("WORKER_PROCESS_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Retrieval.RerankTopK != 5 {
		t.Fatalf("expected fallback rerank top k, got %d", cfg.Retrieval.RerankTopK)
	}
	if cfg.Retrieval.RelevanceThreshold != 0.25 {
		t.Fatalf("expected fallback relevance threshold, got %v", cfg.Retrieval.RelevanceThreshold)
	}
	if cfg.WorkerProcessTimeout != 5*time.Minute {
		t.Fatalf("expected fallback process timeout, got %v", cfg.WorkerProcessTimeout)
	}
}

func TestLoadAppliesYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte(`retrieval:
  rerank_top_k: 8
  relevance_threshold: 0.3
  weights:
    rerank: 0.5
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RERANKER_TOP_K", "3")
	t.Setenv("FUSION_WEIGHT_ORIGINAL", "")
	t.Setenv("FEEDBACK_SIMILARITY_THRESHOLD", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Retrieval.RerankTopK != 8 {
		t.Fatalf("expected file to override env top k, got %d", cfg.Retrieval.RerankTopK)
	}
	if cfg.Retrieval.RelevanceThreshold != 0.3 {
		t.Fatalf("expected relevance threshold 0.3, got %v", cfg.Retrieval.RelevanceThreshold)
	}
	if cfg.Retrieval.Weights.Rerank != 0.5 {
		t.Fatalf("expected rerank weight 0.5, got %v", cfg.Retrieval.Weights.Rerank)
	}
	if cfg.Retrieval.Weights.Original != 0.45 {
		t.Fatalf("expected untouched original weight, got %v", cfg.Retrieval.Weights.Original)
	}
	if cfg.Retrieval.FeedbackThreshold != 0.8 {
		t.Fatalf("expected untouched feedback threshold, got %v", cfg.Retrieval.FeedbackThreshold)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("retrieval: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}

func TestLoadRejectsMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
