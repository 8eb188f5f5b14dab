package chunking

import (
	"reflect"
	"testing"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func TestStrategyPresets(t *testing.T) {
	tests := []struct {
		contentType domain.ContentType
		size        int
		overlap     int
		want        domain.ContentType
		description string
	}{
		{domain.ContentBook, 2048, 200, domain.ContentBook, "BookChunkingStrategy: 2048 chars, 200 overlap"},
		{domain.ContentChapter, 1024, 100, domain.ContentChapter, "ChapterChunkingStrategy: 1024 chars, 100 overlap"},
		{domain.ContentDocument, 512, 50, domain.ContentDocument, "DocumentChunkingStrategy: 512 chars, 50 overlap"},
		{domain.ContentAuto, 512, 50, domain.ContentDocument, "DocumentChunkingStrategy: 512 chars, 50 overlap"},
	}

	for _, tt := range tests {
		cfg := StrategyFor(tt.contentType).Config()
		if cfg.ChunkSize != tt.size || cfg.ChunkOverlap != tt.overlap || cfg.ContentType != tt.want {
			t.Fatalf("StrategyFor(%s) = %+v", tt.contentType, cfg)
		}
		if cfg.Description != tt.description {
			t.Fatalf("StrategyFor(%s) description = %q", tt.contentType, cfg.Description)
		}
	}
}

func TestBookStrategyExtractMetadata(t *testing.T) {
	layout := &domain.Layout{Pages: []domain.Page{
		glyphPage(1,
			styledLine{text: "Fundamentals of Physics", size: 24},
			body("David Halliday"),
			body("Robert Resnick"),
			body("Wiley University Press"),
			body("10th Edition"),
			body("ISBN 978-1-118-23072-5"),
		),
		textPage(2, "Contents", "Chapter 1 Measurement", "Chapter 44 Quarks, Leptons, and the Big Bang"),
	}}

	meta := BookStrategy{}.ExtractMetadata(layout)
	if meta.Title != "Fundamentals of Physics" {
		t.Fatalf("unexpected title %q", meta.Title)
	}
	if !reflect.DeepEqual(meta.Authors, []string{"David Halliday", "Robert Resnick"}) {
		t.Fatalf("unexpected authors %q", meta.Authors)
	}
	if meta.Edition != "10th Edition" {
		t.Fatalf("unexpected edition %q", meta.Edition)
	}
	if meta.ISBN != "9781118230725" {
		t.Fatalf("unexpected isbn %q", meta.ISBN)
	}
	if meta.TotalChapters != 44 {
		t.Fatalf("expected 44 chapters, got %d", meta.TotalChapters)
	}
	if meta.TotalPages != 2 {
		t.Fatalf("expected 2 pages, got %d", meta.TotalPages)
	}
}

func TestChapterStrategyExtractMetadata(t *testing.T) {
	layout := &domain.Layout{Pages: []domain.Page{textPage(1, "Physics 101", "Chapter 5: Force and Motion", paragraphA)}}
	meta := ChapterStrategy{}.ExtractMetadata(layout)
	if meta.ChapterNum == nil || *meta.ChapterNum != 5 || meta.ChapterTitle != "Force and Motion" {
		t.Fatalf("unexpected chapter metadata: %+v", meta)
	}

	outOfRange := &domain.Layout{Pages: []domain.Page{textPage(1, "2024. Annual Report")}}
	if meta := (ChapterStrategy{}).ExtractMetadata(outOfRange); meta.ChapterNum != nil {
		t.Fatalf("expected no chapter number for %d", *meta.ChapterNum)
	}
}

func TestDocumentStrategyExtractMetadata(t *testing.T) {
	layout := &domain.Layout{
		Pages: []domain.Page{textPage(1, paragraphA), textPage(2, paragraphB), textPage(3, paragraphC)},
		Info:  map[string]string{"Title": " Lab Manual ", "Author": "Dept. of Physics"},
	}
	meta := DocumentStrategy{}.ExtractMetadata(layout)
	if meta.TotalPages != 3 || meta.PDFTitle != "Lab Manual" || meta.PDFAuthor != "Dept. of Physics" {
		t.Fatalf("unexpected document metadata: %+v", meta)
	}
}
