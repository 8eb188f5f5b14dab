package markdown

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const Format = "markdown"

// Heading levels map to synthetic font sizes so that size-based structure
// detection treats H1 as a chapter and H2..H6 as sections.
const (
	bodySize = 12.0
	h1Size   = 24.0
	h2Size   = 16.0
	h3Size   = 15.0
	minorH   = 14.5
)

type Parser struct {
	md goldmark.Markdown
}

func NewParser() *Parser {
	return &Parser{md: goldmark.New()}
}

func (p *Parser) Parse(ctx context.Context, raw []byte) (*domain.Layout, error) {
	doc := p.md.Parser().Parse(text.NewReader(raw))

	lines := make([]domain.TextLine, 0, 64)
	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if err := ctx.Err(); err != nil {
			return ast.WalkStop, err
		}
		switch n := node.(type) {
		case *ast.Heading:
			if t := strings.TrimSpace(nodeText(n, raw)); t != "" {
				lines = append(lines, domain.TextLine{Text: t, FontSize: headingSize(n.Level)})
			}
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock, *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			segments := n.Lines()
			for i := 0; i < segments.Len(); i++ {
				seg := segments.At(i)
				if t := strings.TrimSpace(string(seg.Value(raw))); t != "" {
					lines = append(lines, domain.TextLine{Text: t, FontSize: bodySize})
				}
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.Layout{
		Format:    Format,
		SizeBytes: int64(len(raw)),
		Pages:     []domain.Page{{Number: 1, Lines: lines}},
	}, nil
}

func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	segments := n.Lines()
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.Write(seg.Value(source))
	}
	return b.String()
}

func headingSize(level int) float64 {
	switch level {
	case 1:
		return h1Size
	case 2:
		return h2Size
	case 3:
		return h3Size
	default:
		return minorH
	}
}
