package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const defaultCriticTemperature = 0.1

// Critic grades answers with a JSON-mode generation call. Model defaults to
// the client's generation model.
type Critic struct {
	client      *Client
	model       string
	temperature float64
}

func NewCritic(client *Client, model string, temperature float64) *Critic {
	if strings.TrimSpace(model) == "" {
		model = client.genModel
	}
	if temperature < 0 {
		temperature = defaultCriticTemperature
	}
	return &Critic{client: client, model: model, temperature: temperature}
}

func (c *Critic) EvaluateAnswer(ctx context.Context, question, answer string, chunks []domain.ScoredChunk) (*domain.AnswerEvaluation, error) {
	raw, err := c.client.generate(ctx, map[string]any{
		"model":   c.model,
		"prompt":  buildCriticPrompt(question, answer, chunks),
		"stream":  false,
		"format":  "json",
		"options": map[string]any{"temperature": c.temperature},
	})
	if err != nil {
		return nil, err
	}
	return parseEvaluation(raw)
}

func parseEvaluation(raw string) (*domain.AnswerEvaluation, error) {
	var eval domain.AnswerEvaluation
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &eval); err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse critic evaluation", err)
	}
	if eval.Confidence < 0 || eval.Confidence > 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse critic evaluation",
			fmt.Errorf("confidence %v outside [0,1]", eval.Confidence))
	}
	eval.MissingInfo = strings.TrimSpace(eval.MissingInfo)
	if eval.EnrichmentSuggestions == nil {
		eval.EnrichmentSuggestions = []string{}
	}
	return &eval, nil
}
