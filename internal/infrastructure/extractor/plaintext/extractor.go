package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const Format = "text"

// Parser reads UTF-8 text. A form feed starts a new page.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, raw []byte) (*domain.Layout, error) {
	if !utf8.Valid(raw) {
		return nil, domain.WrapError(domain.ErrUnsupportedContentType, "parse plain text", errors.New("binary content"))
	}

	layout := &domain.Layout{Format: Format, SizeBytes: int64(len(raw))}
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	for i, pageText := range strings.Split(text, "\f") {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layout.Pages = append(layout.Pages, domain.Page{
			Number: i + 1,
			Lines:  Lines(pageText),
		})
	}
	return layout, nil
}

// Lines splits text into unsized lines, dropping blank ones.
func Lines(text string) []domain.TextLine {
	raw := strings.Split(text, "\n")
	out := make([]domain.TextLine, 0, len(raw))
	for _, ln := range raw {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		out = append(out, domain.TextLine{Text: ln})
	}
	return out
}
