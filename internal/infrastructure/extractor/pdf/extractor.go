// Package pdf reads PDF text with glyph positions and font sizes using
// ledongthuc/pdf. Pages whose content stream cannot be decoded degrade to
// plain text without size information.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/extractor/plaintext"
)

const Format = "pdf"

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, raw []byte) (layout *domain.Layout, err error) {
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse pdf", fmt.Errorf("empty pdf content"))
	}
	defer func() {
		if r := recover(); r != nil {
			layout = nil
			err = domain.WrapError(domain.ErrInvalidInput, "parse pdf", fmt.Errorf("malformed pdf: %v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open pdf", err)
	}

	layout = &domain.Layout{
		Format:    Format,
		SizeBytes: int64(len(raw)),
		Info:      documentInfo(reader),
	}
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		layout.Pages = append(layout.Pages, readPage(i, page))
	}
	return layout, nil
}

func readPage(number int, page pdf.Page) domain.Page {
	out := domain.Page{Number: number}
	if glyphs, ok := pageGlyphs(page); ok && len(glyphs) > 0 {
		out.Glyphs = glyphs
		return out
	}
	out.Lines = plaintext.Lines(pagePlainText(page))
	return out
}

// pageGlyphs converts content-stream text runs to top-based coordinates.
// Space glyphs are kept: they are the only word breaks for fonts without a
// width table, where every glyph of a run reports the same X.
func pageGlyphs(page pdf.Page) (glyphs []domain.Glyph, ok bool) {
	defer func() {
		if recover() != nil {
			glyphs, ok = nil, false
		}
	}()

	texts := page.Content().Text
	height := pageHeight(page)
	if height <= 0 {
		for _, t := range texts {
			if t.Y > height {
				height = t.Y
			}
		}
	}

	glyphs = make([]domain.Glyph, 0, len(texts))
	for _, t := range texts {
		if t.S == "" || t.S == "\n" {
			continue
		}
		glyphs = append(glyphs, domain.Glyph{
			Text:     t.S,
			FontSize: t.FontSize,
			X:        t.X,
			Y:        height - t.Y,
			Width:    t.W,
		})
	}
	return glyphs, true
}

func pagePlainText(page pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

func pageHeight(page pdf.Page) float64 {
	box := page.V.Key("MediaBox")
	if box.Len() < 4 {
		return 0
	}
	return box.Index(3).Float64() - box.Index(1).Float64()
}

func documentInfo(reader *pdf.Reader) map[string]string {
	info := reader.Trailer().Key("Info")
	if info.IsNull() {
		return nil
	}
	out := make(map[string]string, 2)
	for _, key := range []string{"Title", "Author"} {
		if v := strings.TrimSpace(info.Key(key).Text()); v != "" {
			out[key] = v
		}
	}
	return out
}
