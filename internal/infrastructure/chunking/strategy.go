package chunking

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// Strategy fixes the chunk granularity for one content type and knows how to
// scrape document-level metadata appropriate to it.
type Strategy interface {
	Config() domain.ChunkingStrategy
	ExtractMetadata(layout *domain.Layout) domain.SourceMetadata
}

// StrategyFor maps a content type to its preset. AUTO and unknown values
// resolve to the document preset.
func StrategyFor(contentType domain.ContentType) Strategy {
	switch contentType {
	case domain.ContentBook:
		return BookStrategy{}
	case domain.ContentChapter:
		return ChapterStrategy{}
	default:
		return DocumentStrategy{}
	}
}

func strategyConfig(name string, contentType domain.ContentType, size, overlap int) domain.ChunkingStrategy {
	return domain.ChunkingStrategy{
		ChunkSize:    size,
		ChunkOverlap: overlap,
		ContentType:  contentType,
		Description:  fmt.Sprintf("%s: %d chars, %d overlap", name, size, overlap),
	}
}

var (
	editionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+(?:st|nd|rd|th)\s+edition)`),
		regexp.MustCompile(`(?i)(edition\s+\d+)`),
		regexp.MustCompile(`(?i)(\d+(?:st|nd|rd|th)\s+ed\.?)`),
	}
	isbnPattern         = regexp.MustCompile(`(?i)isbn(?:-1[03])?[\s\-:]*((?:\d[\s\-]?){12}\d|(?:\d[\s\-]?){9}[\dX])`)
	authorPattern       = regexp.MustCompile(`^[A-Z][a-z]+\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?$`)
	authorExcludedWords = []string{"edition", "press", "university", "chapter", "contents"}
	tocChapterPattern   = regexp.MustCompile(`(?i)chapter\s+(\d+)`)

	chapterTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^chapter\s+(\d+)[:\-\s]*(.*)$`),
		regexp.MustCompile(`(?i)^ch\.?\s*(\d+)[:\-\s]*(.*)$`),
		regexp.MustCompile(`(?i)^(\d+)\.\s+([A-Z].*)$`),
		regexp.MustCompile(`(?i)^(\d+)[:\-\s]+([A-Z].*)$`),
	}
)

const (
	maxAuthors         = 5
	authorScanLines    = 20
	chapterScanLines   = 20
	tocScanPages       = 10
	titleFallbackLines = 10
)

// BookStrategy targets full textbooks: large chunks for cross-chapter context.
type BookStrategy struct{}

func (BookStrategy) Config() domain.ChunkingStrategy {
	return strategyConfig("BookChunkingStrategy", domain.ContentBook, 2048, 200)
}

func (BookStrategy) ExtractMetadata(layout *domain.Layout) domain.SourceMetadata {
	meta := domain.SourceMetadata{TotalPages: pageCount(layout)}
	lines := collectLines(layout)
	first := firstPageLines(lines)
	if len(first) == 0 {
		return meta
	}
	text := joinLines(first)

	meta.Title = bookTitle(first)
	meta.Edition = firstSubmatch(editionPatterns, text)
	if m := isbnPattern.FindStringSubmatch(text); m != nil {
		meta.ISBN = strings.NewReplacer(" ", "", "-", "").Replace(m[1])
	}
	meta.Authors = bookAuthors(first)
	meta.TotalChapters = tocChapterCount(lines)
	return meta
}

// ChapterStrategy targets a single chapter.
type ChapterStrategy struct{}

func (ChapterStrategy) Config() domain.ChunkingStrategy {
	return strategyConfig("ChapterChunkingStrategy", domain.ContentChapter, 1024, 100)
}

func (ChapterStrategy) ExtractMetadata(layout *domain.Layout) domain.SourceMetadata {
	meta := domain.SourceMetadata{TotalPages: pageCount(layout)}
	first := firstPageLines(collectLines(layout))
	for i, ln := range first {
		if i >= chapterScanLines {
			break
		}
		for _, pattern := range chapterTitlePatterns {
			m := pattern.FindStringSubmatch(ln.text)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil || n < 1 || n > 99 {
				continue
			}
			meta.ChapterNum = &n
			meta.ChapterTitle = strings.TrimSpace(m[2])
			return meta
		}
	}
	return meta
}

// DocumentStrategy targets short documents: small chunks for precise lookup.
type DocumentStrategy struct{}

func (DocumentStrategy) Config() domain.ChunkingStrategy {
	return strategyConfig("DocumentChunkingStrategy", domain.ContentDocument, 512, 50)
}

func (DocumentStrategy) ExtractMetadata(layout *domain.Layout) domain.SourceMetadata {
	meta := domain.SourceMetadata{TotalPages: pageCount(layout)}
	if layout != nil && layout.Info != nil {
		meta.PDFTitle = strings.TrimSpace(layout.Info["Title"])
		meta.PDFAuthor = strings.TrimSpace(layout.Info["Author"])
	}
	return meta
}

// bookTitle prefers the largest-font text on the first page.
func bookTitle(first []docLine) string {
	var maxSize float64
	for _, ln := range first {
		if ln.size > maxSize {
			maxSize = ln.size
		}
	}
	if maxSize > 0 {
		parts := make([]string, 0, 2)
		for _, ln := range first {
			if ln.size == maxSize {
				parts = append(parts, ln.text)
			}
		}
		title := strings.Join(parts, " ")
		if n := utf8.RuneCountInString(title); n > 3 && n < 200 {
			return title
		}
	}

	for i, ln := range first {
		if i >= titleFallbackLines {
			break
		}
		if n := utf8.RuneCountInString(ln.text); n > 3 && n < 200 && !isDigits(ln.text) {
			return ln.text
		}
	}
	return ""
}

func bookAuthors(first []docLine) []string {
	authors := make([]string, 0, maxAuthors)
	for i, ln := range first {
		if i >= authorScanLines || len(authors) >= maxAuthors {
			break
		}
		if !authorPattern.MatchString(ln.text) {
			continue
		}
		if containsAny(strings.ToLower(ln.text), authorExcludedWords) {
			continue
		}
		authors = append(authors, ln.text)
	}
	return authors
}

// tocChapterCount is the highest "chapter N" seen on the first pages.
func tocChapterCount(lines []docLine) int {
	if len(lines) == 0 {
		return 0
	}
	startPage := lines[0].page
	best := 0
	for _, ln := range lines {
		if ln.page-startPage >= tocScanPages {
			break
		}
		for _, m := range tocChapterPattern.FindAllStringSubmatch(ln.text, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n > best {
				best = n
			}
		}
	}
	return best
}

func firstPageLines(lines []docLine) []docLine {
	if len(lines) == 0 {
		return nil
	}
	page := lines[0].page
	end := 0
	for end < len(lines) && lines[end].page == page {
		end++
	}
	return lines[:end]
}

func firstSubmatch(patterns []*regexp.Regexp, text string) string {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func pageCount(layout *domain.Layout) int {
	if layout == nil {
		return 0
	}
	return len(layout.Pages)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
