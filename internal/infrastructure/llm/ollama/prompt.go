package ollama

import (
	"fmt"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func buildAnswerPrompt(question string, chunks []domain.ScoredChunk) string {
	var contextBuilder strings.Builder
	for idx, chunk := range chunks {
		contextBuilder.WriteString(fmt.Sprintf(
			"[%d] source=%s %s type=%s score=%.3f\n%s\n\n",
			idx+1,
			chunk.Source,
			topicLabel(chunk.Topic),
			chunk.ChunkType,
			chunk.Score,
			chunk.Text,
		))
	}

	return fmt.Sprintf(`You are a study assistant for textbook material.
Answer the question only from the context below and cite sources as [n].
If the context is insufficient, say it directly.

Question:
%s

Context:
%s
`, question, contextBuilder.String())
}

func topicLabel(topic domain.TopicMetadata) string {
	parts := make([]string, 0, 3)
	if topic.ChapterTitle != "" {
		if topic.ChapterNum != nil {
			parts = append(parts, fmt.Sprintf("chapter=%d %q", *topic.ChapterNum, topic.ChapterTitle))
		} else {
			parts = append(parts, fmt.Sprintf("chapter=%q", topic.ChapterTitle))
		}
	}
	if topic.SectionTitle != "" {
		parts = append(parts, fmt.Sprintf("section=%s %q", topic.SectionNum, topic.SectionTitle))
	}
	if topic.PageStart > 0 {
		parts = append(parts, fmt.Sprintf("pages=%d-%d", topic.PageStart, topic.PageEnd))
	}
	return strings.Join(parts, " ")
}

func buildCriticPrompt(question, answer string, chunks []domain.ScoredChunk) string {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}

	return fmt.Sprintf(`You review answers produced from textbook excerpts.
Decide whether the answer fully addresses the question given the context.

Question:
%s

Context:
%s

Answer:
%s

Respond with JSON only:
{"confidence": <0.0-1.0>, "missing_info": "<what is missing or unclear>", "enrichment_suggestions": ["<topic>"]}

Use 0.9 or more for a complete and accurate answer, 0.7 to 0.9 for minor gaps,
0.5 to 0.7 for a partial answer and below 0.5 for an inadequate or misleading one.
Judge factual completeness, not style.
`, question, strings.Join(texts, "\n\n"), answer)
}
