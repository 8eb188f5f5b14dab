package chunking

import (
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// Example keywords are checked before question keywords so that
// "Example Problem 5.1" stays an example.
var (
	exampleKeywords  = []string{"example", "sample", "worked", "demonstration", "illustration", "case study"}
	questionKeywords = []string{"exercise", "problem", "question", "checkpoint", "practice", "review", "test yourself"}
)

// Classify labels a span by its header text.
func Classify(headerText string) domain.ChunkType {
	lower := strings.ToLower(headerText)
	if containsAny(lower, exampleKeywords) {
		return domain.ChunkExample
	}
	if containsAny(lower, questionKeywords) {
		return domain.ChunkQuestion
	}
	return domain.ChunkConcept
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
