package usecase

import (
	"sort"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const neutralFeedbackScore = 0.5

// FusionWeights blend the retrieval signals into a final score. Feedback is
// weighted twice, once directly and once in place of a rerank-feedback term.
type FusionWeights struct {
	Original       float64
	Rerank         float64
	Feedback       float64
	FeedbackDirect float64
}

func DefaultFusionWeights() FusionWeights {
	return FusionWeights{
		Original:       0.45,
		Rerank:         0.35,
		Feedback:       0.10,
		FeedbackDirect: 0.10,
	}
}

func (w FusionWeights) Sum() float64 {
	return w.Original + w.Rerank + w.Feedback + w.FeedbackDirect
}

// feedbackScores computes a Bayesian-smoothed positive ratio
// (pos+1)/(total+2) per chunk id or document id named by the hits.
func feedbackScores(hits []domain.FeedbackHit) map[string]float64 {
	type tally struct{ pos, total int }
	counts := make(map[string]*tally)
	for _, hit := range hits {
		seen := make(map[string]struct{}, len(hit.DocumentIDs))
		for _, id := range hit.DocumentIDs {
			if _, dup := seen[id]; dup || id == "" {
				continue
			}
			seen[id] = struct{}{}
			t := counts[id]
			if t == nil {
				t = &tally{}
				counts[id] = t
			}
			t.total++
			if hit.Label == domain.FeedbackPositive {
				t.pos++
			}
		}
	}

	out := make(map[string]float64, len(counts))
	for id, t := range counts {
		out[id] = float64(t.pos+1) / float64(t.total+2)
	}
	return out
}

func lookupFeedback(scores map[string]float64, chunk domain.ScoredChunk) float64 {
	if s, ok := scores[chunk.ChunkID]; ok {
		return s
	}
	if s, ok := scores[chunk.DocumentID]; ok {
		return s
	}
	return neutralFeedbackScore
}

// fuse sets FeedbackScore and the final Score on copies of chunks and
// re-sorts them. The rerank term falls back to the vector score when the
// rerank stage did not run.
func fuse(chunks []domain.ScoredChunk, scores map[string]float64, w FusionWeights) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		orig := out[i].VectorScore
		rerank := orig
		if out[i].RerankScore != nil {
			rerank = *out[i].RerankScore
		}
		fb := lookupFeedback(scores, out[i])
		out[i].FeedbackScore = &fb
		out[i].Score = w.Original*orig + w.Rerank*rerank + w.Feedback*fb + w.FeedbackDirect*fb
	}
	sortByScore(out)
	return out
}

func sortByScore(chunks []domain.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		if chunks[i].DocumentID != chunks[j].DocumentID {
			return chunks[i].DocumentID < chunks[j].DocumentID
		}
		return chunks[i].ChunkIndex < chunks[j].ChunkIndex
	})
}

func filterRelevant(chunks []domain.ScoredChunk, threshold float64) []domain.ScoredChunk {
	out := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if c.Score >= threshold {
			out = append(out, c)
		}
	}
	return out
}

func truncateChunks(chunks []domain.ScoredChunk, limit int) []domain.ScoredChunk {
	if limit <= 0 || len(chunks) <= limit {
		return chunks
	}
	return chunks[:limit]
}
