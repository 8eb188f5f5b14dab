package chunking

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const (
	sectionSizeRatio = 1.2
	chapterSizeRatio = 1.5

	minHeaderRunes = 3
	maxHeaderRunes = 200

	fallbackChapterSize = 16.0
	fallbackSectionSize = 14.0
	defaultHeaderSize   = 12.0

	// DefaultHeaderTitle labels the synthetic header of unstructured documents.
	DefaultHeaderTitle = "Document Content"
)

var (
	chapterPattern = regexp.MustCompile(`(?i)^(?:chapter|ch\.?)\s*(\d+)[:\-\s]*(.*)$`)
	sectionPattern = regexp.MustCompile(`^(\d+(?:\.\d+)+)[:\-\s]+(.+)$`)
)

// StructureExtractor detects chapter and section headers from font-size
// statistics, falling back to text patterns when sizes are unavailable.
type StructureExtractor struct {
	logger *slog.Logger
}

func NewStructureExtractor(logger *slog.Logger) *StructureExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StructureExtractor{logger: logger}
}

// ExtractHeaders always returns at least one header.
func (e *StructureExtractor) ExtractHeaders(layout *domain.Layout) []domain.Header {
	return e.extract(layout, collectLines(layout))
}

func (e *StructureExtractor) extract(layout *domain.Layout, lines []docLine) []domain.Header {
	sizes := characterSizes(layout)

	var headers []domain.Header
	if distinctSizes(sizes) < 2 {
		e.logger.Debug("structure_extraction_text_fallback",
			"font_sized_chars", len(sizes),
			"distinct_sizes", distinctSizes(sizes),
		)
		headers = textHeaders(lines)
	} else {
		headers = fontHeaders(lines, medianSize(sizes))
	}

	if len(headers) == 0 {
		return []domain.Header{DefaultHeader()}
	}
	return headers
}

// DefaultHeader anchors unstructured documents at page 1.
func DefaultHeader() domain.Header {
	return domain.Header{
		Level:        domain.HeaderChapter,
		ChapterTitle: DefaultHeaderTitle,
		Page:         1,
		YPosition:    0,
		Text:         DefaultHeaderTitle,
		FontSize:     defaultHeaderSize,
		Line:         -1,
		Synthetic:    true,
	}
}

func fontHeaders(lines []docLine, median float64) []domain.Header {
	sectionThreshold := median * sectionSizeRatio
	chapterThreshold := median * chapterSizeRatio

	var tracker chapterTracker
	headers := make([]domain.Header, 0, 16)
	for idx, ln := range lines {
		if ln.size <= 0 || !headerLength(ln.text) {
			continue
		}
		switch {
		case ln.size >= chapterThreshold:
			headers = append(headers, tracker.chapter(ln, idx, ln.size))
		case ln.size >= sectionThreshold:
			headers = append(headers, tracker.section(ln, idx, ln.size))
		}
	}
	return headers
}

func textHeaders(lines []docLine) []domain.Header {
	var tracker chapterTracker
	headers := make([]domain.Header, 0, 16)
	for idx, ln := range lines {
		if !headerLength(ln.text) {
			continue
		}
		switch {
		case chapterPattern.MatchString(ln.text):
			headers = append(headers, tracker.chapter(ln, idx, fallbackChapterSize))
		case sectionPattern.MatchString(ln.text):
			headers = append(headers, tracker.section(ln, idx, fallbackSectionSize))
		}
	}
	return headers
}

// chapterTracker carries the current chapter into following sections.
type chapterTracker struct {
	num   *int
	title string
}

func (t *chapterTracker) chapter(ln docLine, idx int, size float64) domain.Header {
	num, title := parseChapter(ln.text)
	t.num = num
	t.title = title
	return domain.Header{
		Level:        domain.HeaderChapter,
		ChapterNum:   num,
		ChapterTitle: title,
		Page:         ln.page,
		YPosition:    ln.y,
		Text:         ln.text,
		FontSize:     size,
		Line:         idx,
	}
}

func (t *chapterTracker) section(ln docLine, idx int, size float64) domain.Header {
	num, title := parseSection(ln.text)
	return domain.Header{
		Level:        domain.HeaderSection,
		ChapterNum:   t.num,
		ChapterTitle: t.title,
		SectionNum:   num,
		SectionTitle: title,
		Page:         ln.page,
		YPosition:    ln.y,
		Text:         ln.text,
		FontSize:     size,
		Line:         idx,
	}
}

func parseChapter(text string) (*int, string) {
	m := chapterPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, text
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, text
	}
	title := strings.TrimSpace(m[2])
	if title == "" {
		title = text
	}
	return &n, title
}

func parseSection(text string) (string, string) {
	m := sectionPattern.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	return m[1], strings.TrimSpace(m[2])
}

func headerLength(text string) bool {
	n := utf8.RuneCountInString(text)
	return n >= minHeaderRunes && n <= maxHeaderRunes
}

// medianSize takes the upper median, sorted[n/2].
func medianSize(sizes []float64) float64 {
	if len(sizes) == 0 {
		return 0
	}
	sorted := make([]float64, len(sizes))
	copy(sorted, sizes)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

func distinctSizes(sizes []float64) int {
	seen := make(map[float64]struct{}, 8)
	for _, s := range sizes {
		seen[math.Round(s*10)/10] = struct{}{}
	}
	return len(seen)
}
