package rerank

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// Lexical re-scores candidates without a model: 0.60 min-max normalized
// vector score, 0.30 query token overlap, 0.10 source name hit.
type Lexical struct{}

func NewLexical() *Lexical {
	return &Lexical{}
}

func (l *Lexical) Rerank(_ context.Context, query string, candidates []domain.ScoredChunk, topK int) ([]domain.ScoredChunk, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	head := make([]domain.ScoredChunk, len(candidates))
	copy(head, candidates)
	queryTokens := toTokenSet(query)

	minScore := head[0].Score
	maxScore := head[0].Score
	for _, chunk := range head[1:] {
		if chunk.Score < minScore {
			minScore = chunk.Score
		}
		if chunk.Score > maxScore {
			maxScore = chunk.Score
		}
	}

	rangeScore := maxScore - minScore
	normalize := func(v float64) float64 {
		if rangeScore <= 0 {
			if v > 0 {
				return 1
			}
			return 0
		}
		return (v - minScore) / rangeScore
	}

	for i := range head {
		overlap := tokenOverlap(queryTokens, toTokenSet(head[i].Text))
		sourceBoost := sourceTokenHit(queryTokens, head[i].Source)
		score := 0.60*normalize(head[i].Score) + 0.30*overlap + 0.10*sourceBoost
		head[i].RerankScore = &score
	}

	sortByRerankScore(head)
	return truncate(head, topK), nil
}

// sortByRerankScore orders best first with a stable document/chunk tie-break.
func sortByRerankScore(chunks []domain.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		si, sj := rerankValue(chunks[i]), rerankValue(chunks[j])
		if si != sj {
			return si > sj
		}
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
}

func rerankValue(c domain.ScoredChunk) float64 {
	if c.RerankScore != nil {
		return *c.RerankScore
	}
	return c.Score
}

func truncate(chunks []domain.ScoredChunk, topK int) []domain.ScoredChunk {
	if topK <= 0 || len(chunks) <= topK {
		return chunks
	}
	return chunks[:topK]
}

func tokenOverlap(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func sourceTokenHit(query map[string]struct{}, source string) float64 {
	if len(query) == 0 || source == "" {
		return 0
	}
	source = strings.ToLower(source)
	for token := range query {
		if len(token) < 3 {
			continue
		}
		if strings.Contains(source, token) {
			return 1
		}
	}
	return 0
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
