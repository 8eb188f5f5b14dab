package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50

	maxAnswerChunks             = 3
	minPrintableRatio           = 0.8
	corruptedAnswer             = "Error: Stored content is corrupted or unreadable"
	generationUnavailableAnswer = "Answer generation is unavailable; see the retrieved sources."
)

type RetrievalConfig struct {
	DefaultLimit       int
	RerankTopK         int
	FeedbackThreshold  float64
	RelevanceThreshold float64
	Weights            FusionWeights
}

func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		DefaultLimit:       defaultSearchLimit,
		RerankTopK:         5,
		FeedbackThreshold:  0.8,
		RelevanceThreshold: 0.25,
		Weights:            DefaultFusionWeights(),
	}
}

func (c RetrievalConfig) normalize() RetrievalConfig {
	def := DefaultRetrievalConfig()
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = def.DefaultLimit
	}
	if c.RerankTopK <= 0 {
		c.RerankTopK = def.RerankTopK
	}
	if c.FeedbackThreshold <= 0 {
		c.FeedbackThreshold = def.FeedbackThreshold
	}
	if c.RelevanceThreshold < 0 {
		c.RelevanceThreshold = 0
	}
	if c.Weights.Sum() <= 0 {
		c.Weights = def.Weights
	}
	return c
}

// RetrievalUseCase is the intent-aware search and answer pipeline. Reranker,
// feedback store, generator, critic and observer may be nil.
type RetrievalUseCase struct {
	embedder  ports.Embedder
	vectorDB  ports.VectorStore
	reranker  ports.Reranker
	feedback  ports.FeedbackStore
	generator ports.AnswerGenerator
	critic    ports.AnswerCritic
	observer  ports.RetrievalObserver
	cfg       RetrievalConfig
	logger    *slog.Logger
}

type RetrievalDeps struct {
	Embedder  ports.Embedder
	VectorDB  ports.VectorStore
	Reranker  ports.Reranker
	Feedback  ports.FeedbackStore
	Generator ports.AnswerGenerator
	Critic    ports.AnswerCritic
	Observer  ports.RetrievalObserver
	Logger    *slog.Logger
}

func NewRetrievalUseCase(deps RetrievalDeps, cfg RetrievalConfig) *RetrievalUseCase {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalUseCase{
		embedder:  deps.Embedder,
		vectorDB:  deps.VectorDB,
		reranker:  deps.Reranker,
		feedback:  deps.Feedback,
		generator: deps.Generator,
		critic:    deps.Critic,
		observer:  deps.Observer,
		cfg:       cfg.normalize(),
		logger:    logger,
	}
}

func (uc *RetrievalUseCase) DetectIntent(query string) *domain.ChunkType {
	return DetectIntent(query)
}

// Search never fails: backend errors are logged and yield an empty result.
func (uc *RetrievalUseCase) Search(ctx context.Context, key domain.CollectionKey, query string, opts domain.SearchOptions) []domain.ScoredChunk {
	return uc.search(ctx, key, query, DetectIntent(query), opts)
}

func (uc *RetrievalUseCase) search(
	ctx context.Context,
	key domain.CollectionKey,
	query string,
	intent *domain.ChunkType,
	opts domain.SearchOptions,
) []domain.ScoredChunk {
	limit := uc.limit(opts.Limit)
	if strings.TrimSpace(query) == "" || key.Validate() != nil {
		return []domain.ScoredChunk{}
	}

	queryVector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		uc.backendFailed("embed", key, err)
		return []domain.ScoredChunk{}
	}

	results, err := uc.retrieve(ctx, key, queryVector, intent, limit)
	if err != nil {
		uc.backendFailed("vector_search", key, err)
		return []domain.ScoredChunk{}
	}

	if opts.Rerank && len(results) > 0 {
		results = uc.rerank(ctx, query, results, limit)
	}
	if opts.Feedback && len(results) > 0 {
		results = uc.fuseFeedback(ctx, key, queryVector, results)
	}

	results = filterRelevant(results, uc.cfg.RelevanceThreshold)
	if uc.observer != nil {
		uc.observer.ObserveSearch(intentLabel(intent), len(results))
	}
	return results
}

// retrieve issues one unfiltered search, or a primary search on the intent
// type plus a secondary search on its complement.
func (uc *RetrievalUseCase) retrieve(
	ctx context.Context,
	key domain.CollectionKey,
	queryVector []float32,
	intent *domain.ChunkType,
	limit int,
) ([]domain.ScoredChunk, error) {
	if intent == nil {
		results, err := uc.vectorDB.Search(ctx, key, queryVector, limit, domain.SearchFilter{})
		if err != nil {
			return nil, err
		}
		results = copyScored(results)
		sortByScore(results)
		return truncateChunks(results, limit), nil
	}

	primaryLimit := (limit + 1) / 2
	secondaryLimit := limit / 2

	var primary, secondary []domain.ScoredChunk
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		primary, err = uc.vectorDB.Search(gctx, key, queryVector, primaryLimit, domain.SearchFilter{ChunkType: *intent})
		return err
	})
	if secondaryLimit > 0 {
		g.Go(func() error {
			var err error
			secondary, err = uc.vectorDB.Search(gctx, key, queryVector, secondaryLimit, domain.SearchFilter{ChunkType: complementary[*intent]})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]domain.ScoredChunk, 0, len(primary)+len(secondary))
	merged = append(merged, primary...)
	merged = append(merged, secondary...)
	sortByScore(merged)
	return truncateChunks(merged, limit), nil
}

func (uc *RetrievalUseCase) rerank(ctx context.Context, query string, results []domain.ScoredChunk, limit int) []domain.ScoredChunk {
	if uc.reranker == nil {
		uc.stageSkipped("rerank", "reranker not configured", nil)
		return results
	}
	topK := uc.cfg.RerankTopK
	if topK > limit {
		topK = limit
	}
	reranked, err := uc.reranker.Rerank(ctx, query, results, topK)
	if err != nil {
		uc.stageSkipped("rerank", "reranker failed", err)
		return truncateChunks(results, topK)
	}
	// Score follows the ranking; the similarity stays in VectorScore.
	for i := range reranked {
		if reranked[i].RerankScore != nil {
			reranked[i].Score = *reranked[i].RerankScore
		}
	}
	sortByScore(reranked)
	return reranked
}

func (uc *RetrievalUseCase) fuseFeedback(
	ctx context.Context,
	key domain.CollectionKey,
	queryVector []float32,
	results []domain.ScoredChunk,
) []domain.ScoredChunk {
	var scores map[string]float64
	if uc.feedback == nil {
		uc.stageSkipped("feedback", "feedback store not configured", nil)
	} else {
		hits, err := uc.feedback.SimilarFeedback(ctx, key, queryVector, uc.cfg.FeedbackThreshold)
		if err != nil {
			uc.stageSkipped("feedback", "feedback lookup failed", err)
		} else {
			scores = feedbackScores(hits)
		}
	}
	return fuse(results, scores, uc.cfg.Weights)
}

// Answer never fails: an empty retrieval yields the no-context answer and a
// generator failure still returns the sources. With opts.Critic a generated
// answer is also evaluated; a critic failure only drops the evaluation.
func (uc *RetrievalUseCase) Answer(ctx context.Context, key domain.CollectionKey, question string, opts domain.SearchOptions) *domain.Answer {
	intent := DetectIntent(question)
	results := uc.search(ctx, key, question, intent, opts)
	if len(results) == 0 {
		if uc.observer != nil {
			uc.observer.ObserveNoContext()
		}
		return &domain.Answer{
			Text:    domain.NoContextAnswer,
			Sources: []domain.ScoredChunk{},
			Intent:  intent,
		}
	}

	valid := usableChunks(results)
	if len(valid) == 0 {
		uc.logger.Warn("answer_context_unreadable", "collection", key.String(), "candidates", len(results))
		return &domain.Answer{
			Text:    corruptedAnswer,
			Sources: []domain.ScoredChunk{},
			Intent:  intent,
		}
	}

	confidence := valid[0].Score
	for _, c := range valid[1:] {
		if c.Score > confidence {
			confidence = c.Score
		}
	}
	answer := &domain.Answer{
		Sources:    valid,
		Confidence: confidence,
		IsRelevant: true,
		Intent:     intent,
	}

	if uc.generator == nil {
		answer.Text = generationUnavailableAnswer
		return answer
	}
	text, err := uc.generator.GenerateAnswer(ctx, question, valid)
	if err != nil {
		uc.stageSkipped("generate", "answer generation failed", err)
		answer.Text = generationUnavailableAnswer
		return answer
	}
	answer.Text = text
	if opts.Critic {
		answer.Critic = uc.evaluate(ctx, question, text, valid)
	}
	return answer
}

func (uc *RetrievalUseCase) evaluate(ctx context.Context, question, text string, sources []domain.ScoredChunk) *domain.AnswerEvaluation {
	if uc.critic == nil {
		uc.stageSkipped("critic", "answer critic not configured", nil)
		return nil
	}
	eval, err := uc.critic.EvaluateAnswer(ctx, question, text, sources)
	if err != nil {
		uc.stageSkipped("critic", "answer critic failed", err)
		return nil
	}
	return eval
}

func (uc *RetrievalUseCase) limit(requested int) int {
	if requested <= 0 {
		return uc.cfg.DefaultLimit
	}
	if requested > maxSearchLimit {
		return maxSearchLimit
	}
	return requested
}

func (uc *RetrievalUseCase) backendFailed(stage string, key domain.CollectionKey, err error) {
	uc.logger.Warn("retrieval_backend_failed",
		"stage", stage,
		"collection", key.String(),
		"error", domain.WrapError(domain.ErrRetrievalBackend, stage, err),
	)
	if uc.observer != nil {
		uc.observer.ObserveStageDegraded(stage)
	}
}

func (uc *RetrievalUseCase) stageSkipped(stage, reason string, err error) {
	attrs := []any{"stage", stage, "reason", reason}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	uc.logger.Warn("retrieval_stage_skipped", attrs...)
	if uc.observer != nil && err != nil {
		uc.observer.ObserveStageDegraded(stage)
	}
}

// usableChunks keeps at most three distinct, mostly printable chunks.
func usableChunks(results []domain.ScoredChunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, maxAnswerChunks)
	seen := make(map[string]struct{}, len(results))
	for _, c := range results {
		if len(out) >= maxAnswerChunks {
			break
		}
		text := strings.TrimSpace(c.Text)
		if text == "" || printableRatio(text) <= minPrintableRatio {
			continue
		}
		if _, dup := seen[text]; dup {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, c)
	}
	return out
}

func printableRatio(s string) float64 {
	total, printable := 0, 0
	for _, r := range s {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}

func copyScored(in []domain.ScoredChunk) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(in))
	copy(out, in)
	return out
}
