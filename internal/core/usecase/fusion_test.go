package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFeedbackScoresBayesianSmoothing(t *testing.T) {
	hits := []domain.FeedbackHit{
		{DocumentIDs: []string{"c1", "c2"}, Label: domain.FeedbackPositive},
		{DocumentIDs: []string{"c1"}, Label: domain.FeedbackPositive},
		{DocumentIDs: []string{"c2", "c2"}, Label: domain.FeedbackNegative},
	}
	scores := feedbackScores(hits)
	if !almostEqual(scores["c1"], 3.0/4.0) {
		t.Fatalf("c1 = %v, want 0.75", scores["c1"])
	}
	if !almostEqual(scores["c2"], 2.0/4.0) {
		t.Fatalf("c2 = %v, want 0.5", scores["c2"])
	}
}

func TestFuseUsesNeutralFeedbackAndVectorFallback(t *testing.T) {
	chunks := []domain.ScoredChunk{scored("a", domain.ChunkConcept, 0.8, "x")}
	out := fuse(chunks, nil, DefaultFusionWeights())

	want := 0.45*0.8 + 0.35*0.8 + 0.10*0.5 + 0.10*0.5
	if !almostEqual(out[0].Score, want) {
		t.Fatalf("score = %v, want %v", out[0].Score, want)
	}
	if out[0].FeedbackScore == nil || *out[0].FeedbackScore != neutralFeedbackScore {
		t.Fatalf("expected neutral feedback score, got %v", out[0].FeedbackScore)
	}
	if chunks[0].Score != 0.8 {
		t.Fatalf("expected input untouched")
	}
}

func TestFuseReordersByFinalScore(t *testing.T) {
	low, high := 0.1, 0.9
	a := scored("a", domain.ChunkConcept, 0.70, "x")
	a.RerankScore = &low
	b := scored("b", domain.ChunkConcept, 0.60, "y")
	b.RerankScore = &high

	out := fuse([]domain.ScoredChunk{a, b}, map[string]float64{"b": 0.75}, DefaultFusionWeights())
	if out[0].ChunkID != "b" {
		t.Fatalf("expected b first, got %s", out[0].ChunkID)
	}
	wantB := 0.45*0.60 + 0.35*0.9 + 0.20*0.75
	if !almostEqual(out[0].Score, wantB) {
		t.Fatalf("b score = %v, want %v", out[0].Score, wantB)
	}
}

func TestLookupFeedbackFallsBackToDocumentID(t *testing.T) {
	c := scored("c9", domain.ChunkConcept, 0.5, "x")
	if got := lookupFeedback(map[string]float64{c.DocumentID: 0.2}, c); got != 0.2 {
		t.Fatalf("expected document-level score, got %v", got)
	}
}

func TestFilterRelevantDropsBelowThreshold(t *testing.T) {
	in := []domain.ScoredChunk{
		scored("a", domain.ChunkConcept, 0.9, "x"),
		scored("b", domain.ChunkConcept, 0.25, "y"),
		scored("c", domain.ChunkConcept, 0.2, "z"),
	}
	out := filterRelevant(in, 0.25)
	if len(out) != 2 || out[1].ChunkID != "b" {
		t.Fatalf("unexpected filtered result %+v", out)
	}
}
