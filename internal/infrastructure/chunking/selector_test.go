package chunking

import (
	"testing"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type alwaysBookPolicy struct{}

func (alwaysBookPolicy) IsBook(int64) bool { return true }

func TestDetectContentType(t *testing.T) {
	const mb = 1024 * 1024
	tests := []struct {
		name   string
		layout *domain.Layout
		hint   domain.ContentType
		want   domain.ContentType
	}{
		{
			name:   "large file is a book regardless of content",
			layout: &domain.Layout{SizeBytes: 6 * mb, Pages: []domain.Page{textPage(1, paragraphA)}},
			want:   domain.ContentBook,
		},
		{
			name: "book indicators on first page",
			layout: &domain.Layout{SizeBytes: 2 * mb, Pages: []domain.Page{textPage(1,
				"Physics for Scientists and Engineers",
				"3rd Edition",
				"ISBN 978-0-13-149508-1",
				"Copyright © 2020 Pearson Education",
			)}},
			want: domain.ContentBook,
		},
		{
			name: "table of contents chapter listing",
			layout: &domain.Layout{SizeBytes: mb, Pages: []domain.Page{textPage(1,
				"Contents",
				"Overview of the course material",
				"Notes on notation",
				"Units and measurement conventions",
				"How to read this text",
				"chapter 1 Kinematics, chapter 2 Dynamics, chapter 3 Energy",
			)}},
			want: domain.ContentBook,
		},
		{
			name:   "chapter opening within first five lines",
			layout: &domain.Layout{SizeBytes: mb, Pages: []domain.Page{textPage(1, "Chapter 5", "Force and Motion", paragraphA)}},
			want:   domain.ContentChapter,
		},
		{
			name:   "numbered chapter opening",
			layout: &domain.Layout{SizeBytes: mb, Pages: []domain.Page{textPage(1, "Lecture notes", "5. Force and Motion", paragraphA)}},
			want:   domain.ContentChapter,
		},
		{
			name:   "plain document",
			layout: &domain.Layout{SizeBytes: 500 * 1024, Pages: []domain.Page{textPage(1, paragraphA, paragraphB)}},
			want:   domain.ContentDocument,
		},
		{
			name:   "explicit hint wins",
			layout: &domain.Layout{SizeBytes: 6 * mb, Pages: []domain.Page{textPage(1, paragraphA)}},
			hint:   domain.ContentChapter,
			want:   domain.ContentChapter,
		},
		{
			name:   "unreadable first page",
			layout: &domain.Layout{SizeBytes: mb, Pages: []domain.Page{{Number: 1}}},
			want:   domain.ContentDocument,
		},
		{
			name: "nil layout",
			want: domain.ContentDocument,
		},
	}

	selector := NewSelector(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hint := tt.hint
			if hint == "" {
				hint = domain.ContentAuto
			}
			if got := selector.DetectContentType(tt.layout, hint); got != tt.want {
				t.Fatalf("DetectContentType() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSelectorUsesPluggableSizePolicy(t *testing.T) {
	selector := NewSelector(alwaysBookPolicy{}, nil)
	layout := &domain.Layout{SizeBytes: 10, Pages: []domain.Page{textPage(1, paragraphA)}}
	contentType, strategy := selector.Select(layout, domain.ContentAuto)
	if contentType != domain.ContentBook {
		t.Fatalf("expected BOOK, got %s", contentType)
	}
	if strategy.Config().ChunkSize != 2048 {
		t.Fatalf("expected book strategy, got %+v", strategy.Config())
	}
}

func TestSizeThresholdPolicyIsStrict(t *testing.T) {
	policy := DefaultSizePolicy()
	if policy.IsBook(5 * 1024 * 1024) {
		t.Fatalf("exactly 5MB should not be a book")
	}
	if !policy.IsBook(5*1024*1024 + 1) {
		t.Fatalf("more than 5MB should be a book")
	}
}
