package chunking

import (
	"log/slog"
	"regexp"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const (
	defaultBookSizeBytes = 5 * 1024 * 1024

	minBookIndicators       = 2
	minTOCChapterHits       = 3
	chapterOpeningScanLines = 5
)

var (
	bookIndicatorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bedition\b`),
		regexp.MustCompile(`(?i)\bisbn[\s\-:]*\d`),
		regexp.MustCompile(`(?i)\bcopyright\s+©?\s*\d{4}`),
		regexp.MustCompile(`(?i)\bpublished\s+by\b`),
		regexp.MustCompile(`(?i)\b(?:university|academic)\s+press\b`),
	}
	tocEntryPattern = regexp.MustCompile(`(?i)chapter\s+\d+`)

	chapterOpeningPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)^chapter\s+\d+`),
		regexp.MustCompile(`(?im)^ch\.?\s*\d+`),
		regexp.MustCompile(`(?im)^\d+\.\s+[A-Z]`),
	}
)

// SizePolicy decides from the raw file size alone whether a document is a book.
type SizePolicy interface {
	IsBook(sizeBytes int64) bool
}

// SizeThresholdPolicy treats anything strictly larger than ThresholdBytes as a book.
type SizeThresholdPolicy struct {
	ThresholdBytes int64
}

func DefaultSizePolicy() SizeThresholdPolicy {
	return SizeThresholdPolicy{ThresholdBytes: defaultBookSizeBytes}
}

func (p SizeThresholdPolicy) IsBook(sizeBytes int64) bool {
	threshold := p.ThresholdBytes
	if threshold <= 0 {
		threshold = defaultBookSizeBytes
	}
	return sizeBytes > threshold
}

// Selector classifies documents as BOOK, CHAPTER or DOCUMENT.
type Selector struct {
	sizePolicy SizePolicy
	logger     *slog.Logger
}

func NewSelector(sizePolicy SizePolicy, logger *slog.Logger) *Selector {
	if sizePolicy == nil {
		sizePolicy = DefaultSizePolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{sizePolicy: sizePolicy, logger: logger}
}

// DetectContentType applies, in order: explicit hint, size policy, first-page
// book indicators, chapter opening, then DOCUMENT.
func (s *Selector) DetectContentType(layout *domain.Layout, hint domain.ContentType) domain.ContentType {
	if hint != "" && hint != domain.ContentAuto {
		return hint
	}
	if layout == nil {
		return domain.ContentDocument
	}
	if s.sizePolicy.IsBook(layout.SizeBytes) {
		return domain.ContentBook
	}

	first := firstLayoutPageLines(layout)
	if len(first) == 0 {
		s.logger.Debug("content_type_first_page_unreadable", "pages", len(layout.Pages))
		return domain.ContentDocument
	}

	text := joinLines(first)
	if hasBookIndicators(text) {
		return domain.ContentBook
	}

	head := first
	if len(head) > chapterOpeningScanLines {
		head = head[:chapterOpeningScanLines]
	}
	headText := joinLines(head)
	for _, pattern := range chapterOpeningPatterns {
		if pattern.MatchString(headText) {
			return domain.ContentChapter
		}
	}
	return domain.ContentDocument
}

// Select resolves the content type and its strategy together.
func (s *Selector) Select(layout *domain.Layout, hint domain.ContentType) (domain.ContentType, Strategy) {
	contentType := s.DetectContentType(layout, hint)
	strategy := StrategyFor(contentType)
	return strategy.Config().ContentType, strategy
}

func hasBookIndicators(text string) bool {
	hits := 0
	for _, pattern := range bookIndicatorPatterns {
		if pattern.MatchString(text) {
			hits++
		}
	}
	if hits >= minBookIndicators {
		return true
	}
	return len(tocEntryPattern.FindAllStringIndex(text, -1)) >= minTOCChapterHits
}

func firstLayoutPageLines(layout *domain.Layout) []docLine {
	if len(layout.Pages) == 0 {
		return nil
	}
	return collectLines(&domain.Layout{Pages: layout.Pages[:1]})
}
