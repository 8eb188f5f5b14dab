package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/resilience"
)

// CrossEncoder calls a text-embeddings-inference compatible /rerank endpoint
// that scores (query, text) pairs with a cross-encoder model.
type CrossEncoder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type CrossEncoderOptions struct {
	Model    string
	Timeout  time.Duration
	Executor *resilience.Executor
}

func NewCrossEncoder(baseURL string, opts CrossEncoderOptions) *CrossEncoder {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CrossEncoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      opts.Model,
		httpClient: &http.Client{Timeout: timeout},
		executor:   opts.Executor,
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

func (c *CrossEncoder) Rerank(ctx context.Context, query string, candidates []domain.ScoredChunk, topK int) ([]domain.ScoredChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if strings.TrimSpace(query) == "" {
		return truncate(candidates, topK), nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}
	body, err := json.Marshal(rerankRequest{Model: c.model, Query: query, Texts: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	results, err := resilience.ExecuteValue(ctx, c.executor, "reranker.rerank", func(callCtx context.Context) ([]rerankResult, error) {
		return c.post(callCtx, body)
	}, resilience.ClassifyHTTPError)
	if err != nil {
		return nil, resilience.WrapTemporary("reranker rerank", err, resilience.ClassifyHTTPError)
	}

	out := make([]domain.ScoredChunk, len(candidates))
	copy(out, candidates)
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(out) {
			return nil, fmt.Errorf("reranker returned out-of-range index %d", r.Index)
		}
		score := r.Score
		out[r.Index].RerankScore = &score
	}
	sortByRerankScore(out)
	return truncate(out, topK), nil
}

func (c *CrossEncoder) post(ctx context.Context, body []byte) ([]rerankResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reranker request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resilience.NewHTTPStatusError("reranker", "rerank", resp)
	}
	var results []rerankResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return results, nil
}
