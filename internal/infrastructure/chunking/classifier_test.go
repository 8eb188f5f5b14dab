package chunking

import (
	"testing"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		header string
		want   domain.ChunkType
	}{
		{header: "Example 5.1", want: domain.ChunkExample},
		{header: "Exercise 5.3", want: domain.ChunkQuestion},
		{header: "5.4 Newton's Second Law", want: domain.ChunkConcept},
		{header: "Introduction", want: domain.ChunkConcept},
		{header: "Example Problem 5.1", want: domain.ChunkExample},
		{header: "Worked Solution", want: domain.ChunkExample},
		{header: "CASE STUDY: Bridges", want: domain.ChunkExample},
		{header: "Test Yourself", want: domain.ChunkQuestion},
		{header: "Chapter Review", want: domain.ChunkQuestion},
		{header: "", want: domain.ChunkConcept},
	}

	for _, tt := range tests {
		if got := Classify(tt.header); got != tt.want {
			t.Fatalf("Classify(%q) = %s, want %s", tt.header, got, tt.want)
		}
		if again := Classify(tt.header); again != tt.want {
			t.Fatalf("Classify(%q) not deterministic", tt.header)
		}
	}
}
