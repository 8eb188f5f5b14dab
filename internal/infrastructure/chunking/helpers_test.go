package chunking

import (
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type styledLine struct {
	text string
	size float64
}

// glyphPage lays out one glyph per word, top to bottom, 20pt apart.
func glyphPage(number int, lines ...styledLine) domain.Page {
	page := domain.Page{Number: number}
	for i, ln := range lines {
		y := 50 + float64(i)*20
		x := 72.0
		for _, word := range strings.Fields(ln.text) {
			width := ln.size * 0.5 * float64(len([]rune(word)))
			page.Glyphs = append(page.Glyphs, domain.Glyph{
				Text:     word,
				FontSize: ln.size,
				X:        x,
				Y:        y,
				Width:    width,
			})
			x += width + ln.size*0.4
		}
	}
	return page
}

// textPage builds a page without font information.
func textPage(number int, lines ...string) domain.Page {
	page := domain.Page{Number: number}
	for _, ln := range lines {
		page.Lines = append(page.Lines, domain.TextLine{Text: ln})
	}
	return page
}

func body(s string) styledLine    { return styledLine{text: s, size: 10} }
func chapter(s string) styledLine { return styledLine{text: s, size: 18} }
func section(s string) styledLine { return styledLine{text: s, size: 13} }

const (
	paragraphA = "Force is any interaction that, when unopposed, will change the motion of an object."
	paragraphB = "A force can cause an object with mass to change its velocity, including to begin moving."
	paragraphC = "The net force acting on a body equals the rate of change of its momentum over time."
	paragraphD = "Consider a cart of mass two kilograms pushed with a constant force of ten newtons here."
)
