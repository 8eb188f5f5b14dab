package chunking

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// docLine is one visual line in reading order. size is the mean glyph size,
// zero when the source has no size information.
type docLine struct {
	page int
	y    float64
	text string
	size float64
}

// collectLines flattens a layout into reading-order lines across all pages.
func collectLines(layout *domain.Layout) []docLine {
	if layout == nil {
		return nil
	}
	out := make([]docLine, 0, 64)
	for _, page := range layout.Pages {
		if len(page.Glyphs) > 0 {
			out = append(out, groupGlyphLines(page)...)
			continue
		}
		for idx, ln := range page.Lines {
			text := normalizeSpace(ln.Text)
			if text == "" {
				continue
			}
			y := ln.Y
			if y == 0 {
				y = float64(idx)
			}
			out = append(out, docLine{page: page.Number, y: y, text: text, size: ln.FontSize})
		}
	}
	return out
}

// groupGlyphLines groups glyphs sharing a rounded vertical position.
// Whitespace glyphs break words; the horizontal gap between glyphs only
// decides a break when the source emits no explicit spaces, as happens with
// fonts lacking a width table where every glyph reports the same X.
func groupGlyphLines(page domain.Page) []docLine {
	type bucket struct {
		y      float64
		glyphs []domain.Glyph
	}
	buckets := make(map[float64]*bucket)
	order := make([]float64, 0, 32)
	for _, g := range page.Glyphs {
		if g.Text == "" {
			continue
		}
		key := math.Round(g.Y)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{y: key}
			buckets[key] = b
			order = append(order, key)
		}
		b.glyphs = append(b.glyphs, g)
	}
	sort.Float64s(order)

	out := make([]docLine, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		sort.SliceStable(b.glyphs, func(i, j int) bool { return b.glyphs[i].X < b.glyphs[j].X })

		var text strings.Builder
		var sizeSum float64
		sized := 0
		prevEnd := math.Inf(-1)
		pendingSpace := false
		for _, g := range b.glyphs {
			if strings.TrimSpace(g.Text) == "" {
				pendingSpace = true
				prevEnd = math.Max(prevEnd, glyphEnd(g))
				continue
			}
			if text.Len() > 0 && (pendingSpace || g.X-prevEnd > wordGap(g.FontSize)) {
				text.WriteByte(' ')
			}
			pendingSpace = false
			text.WriteString(g.Text)
			prevEnd = glyphEnd(g)
			if g.FontSize > 0 {
				sizeSum += g.FontSize
				sized++
			}
		}
		line := docLine{page: page.Number, y: b.y, text: normalizeSpace(text.String())}
		if sized > 0 {
			line.size = sizeSum / float64(sized)
		}
		if line.text != "" {
			out = append(out, line)
		}
	}
	return out
}

// characterSizes returns one font size per non-space character.
func characterSizes(layout *domain.Layout) []float64 {
	if layout == nil {
		return nil
	}
	sizes := make([]float64, 0, 1024)
	for _, page := range layout.Pages {
		if len(page.Glyphs) > 0 {
			for _, g := range page.Glyphs {
				if g.FontSize <= 0 {
					continue
				}
				for _, r := range g.Text {
					if !unicode.IsSpace(r) {
						sizes = append(sizes, g.FontSize)
					}
				}
			}
			continue
		}
		for _, ln := range page.Lines {
			if ln.FontSize <= 0 {
				continue
			}
			for _, r := range ln.Text {
				if !unicode.IsSpace(r) {
					sizes = append(sizes, ln.FontSize)
				}
			}
		}
	}
	return sizes
}

func wordGap(fontSize float64) float64 {
	if fontSize <= 0 {
		return 1
	}
	return math.Max(fontSize*0.15, 0.5)
}

func glyphEnd(g domain.Glyph) float64 {
	if g.Width > 0 {
		return g.X + g.Width
	}
	size := g.FontSize
	if size <= 0 {
		size = 10
	}
	return g.X + size*0.5*float64(utf8.RuneCountInString(g.Text))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinLines(lines []docLine) string {
	parts := make([]string, 0, len(lines))
	for _, ln := range lines {
		parts = append(parts, ln.text)
	}
	return strings.Join(parts, "\n")
}
