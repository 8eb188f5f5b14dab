package html

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/extractor/plaintext"
)

const Format = "html"

const bodySize = 12.0

var headingSizes = map[atom.Atom]float64{
	atom.H1: 24,
	atom.H2: 16,
	atom.H3: 15,
	atom.H4: 14.5,
	atom.H5: 14.5,
	atom.H6: 14.5,
}

var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Li: true, atom.Pre: true, atom.Blockquote: true,
	atom.Td: true, atom.Th: true, atom.Dd: true, atom.Dt: true,
	atom.Figcaption: true, atom.Caption: true,
}

var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Nav: true, atom.Header: true, atom.Footer: true, atom.Aside: true,
	atom.Template: true, atom.Svg: true,
}

// Parser keeps heading structure when the markup has headings. Pages without
// headings go through readability to strip boilerplate.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, raw []byte) (*domain.Layout, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse html", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &walker{}
	w.walk(root)

	layout := &domain.Layout{Format: Format, SizeBytes: int64(len(raw))}
	if w.title != "" {
		layout.Info = map[string]string{"Title": w.title}
	}

	lines := w.lines
	if !w.sawHeading {
		if article := readableText(raw); article != "" {
			lines = plaintext.Lines(article)
		}
	}
	layout.Pages = []domain.Page{{Number: 1, Lines: lines}}
	return layout, nil
}

func readableText(raw []byte) string {
	pageURL, _ := url.Parse("file:///document.html")
	article, err := readability.FromReader(bytes.NewReader(raw), pageURL)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(article.TextContent)
}

type walker struct {
	lines      []domain.TextLine
	title      string
	sawHeading bool
}

func (w *walker) walk(n *html.Node) {
	if n.Type == html.TextNode {
		if t := collapse(n.Data); t != "" {
			w.lines = append(w.lines, domain.TextLine{Text: t, FontSize: bodySize})
		}
		return
	}
	if n.Type == html.ElementNode {
		switch {
		case skippedElements[n.DataAtom]:
			return
		case n.DataAtom == atom.Title:
			w.title = collapse(textOf(n))
			return
		case headingSizes[n.DataAtom] > 0:
			if t := collapse(textOf(n)); t != "" {
				w.lines = append(w.lines, domain.TextLine{Text: t, FontSize: headingSizes[n.DataAtom]})
				w.sawHeading = true
			}
			return
		case blockElements[n.DataAtom]:
			if n.DataAtom == atom.Pre {
				for _, ln := range plaintext.Lines(textOf(n)) {
					w.lines = append(w.lines, domain.TextLine{Text: ln.Text, FontSize: bodySize})
				}
				return
			}
			if !hasBlockChild(n) {
				if t := collapse(textOf(n)); t != "" {
					w.lines = append(w.lines, domain.TextLine{Text: t, FontSize: bodySize})
				}
				return
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (blockElements[c.DataAtom] || headingSizes[c.DataAtom] > 0) {
			return true
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.ElementNode && skippedElements[node.DataAtom] {
			return
		}
		if node.Type == html.TextNode {
			b.WriteString(node.Data)
		}
		if node.Type == html.ElementNode && node.DataAtom == atom.Br {
			b.WriteByte('\n')
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
