package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

const (
	defaultQuizQuestions = 5
	maxQuizQuestions     = 20
	quizContextChunks    = 8
	quizChunkRunes       = 1200
)

// QuizUseCase drafts multiple-choice questions from exercise and example
// chunks of a collection.
type QuizUseCase struct {
	retrieval *RetrievalUseCase
	generator ports.AnswerGenerator
	logger    *slog.Logger
}

func NewQuizUseCase(retrieval *RetrievalUseCase, generator ports.AnswerGenerator, logger *slog.Logger) *QuizUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizUseCase{retrieval: retrieval, generator: generator, logger: logger}
}

func (uc *QuizUseCase) Generate(ctx context.Context, key domain.CollectionKey, topic string, count int) (*domain.Quiz, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate quiz", errors.New("topic is required"))
	}
	if count <= 0 {
		count = defaultQuizQuestions
	}
	if count > maxQuizQuestions {
		count = maxQuizQuestions
	}

	intent := domain.ChunkQuestion
	chunks := uc.retrieval.search(ctx, key, topic, &intent, domain.SearchOptions{Limit: quizContextChunks})
	if len(chunks) == 0 {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "generate quiz", fmt.Errorf("no indexed content for topic %q", topic))
	}

	raw, err := uc.generator.GenerateJSONFromPrompt(ctx, buildQuizPrompt(topic, count, chunks))
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	questions, err := parseQuizQuestions(raw, chunks)
	if err != nil {
		return nil, err
	}
	if len(questions) > count {
		questions = questions[:count]
	}

	uc.logger.Info("quiz_generated", "collection", key.String(), "topic", topic, "questions", len(questions))
	return &domain.Quiz{Topic: topic, Questions: questions}, nil
}

func buildQuizPrompt(topic string, count int, chunks []domain.ScoredChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write %d multiple-choice questions about %q using only the study material below.\n", count, topic)
	b.WriteString("Respond with JSON only, shaped as:\n")
	b.WriteString(`{"questions":[{"question":"...","options":["A","B","C","D"],"answer_index":0,"explanation":"...","source_chunk_id":"..."}]}`)
	b.WriteString("\nEach question has exactly four options and one correct answer_index (0-3).\n\nMaterial:\n")
	for _, c := range chunks {
		text := []rune(strings.TrimSpace(c.Text))
		if len(text) > quizChunkRunes {
			text = text[:quizChunkRunes]
		}
		fmt.Fprintf(&b, "\n[chunk_id=%s type=%s]\n%s\n", c.ChunkID, c.ChunkType, string(text))
	}
	return b.String()
}

// parseQuizQuestions drops malformed questions and unknown source ids.
func parseQuizQuestions(raw string, chunks []domain.ScoredChunk) ([]domain.QuizQuestion, error) {
	var payload struct {
		Questions []domain.QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "parse quiz", err)
	}

	known := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		known[c.ChunkID] = struct{}{}
	}

	out := make([]domain.QuizQuestion, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		q.Question = strings.TrimSpace(q.Question)
		if q.Question == "" || len(q.Options) < 2 || q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			continue
		}
		if _, ok := known[q.SourceChunk]; !ok {
			q.SourceChunk = ""
		}
		out = append(out, q)
	}
	if len(out) == 0 {
		return nil, domain.WrapError(domain.ErrTemporary, "parse quiz", errors.New("model returned no valid questions"))
	}
	return out, nil
}
