package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const Format = "xlsx"

// Parser turns each worksheet into a page and each non-empty row into a line.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(ctx context.Context, raw []byte) (*domain.Layout, error) {
	book, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "open workbook", err)
	}
	defer book.Close()

	layout := &domain.Layout{Format: Format, SizeBytes: int64(len(raw))}
	if props, err := book.GetDocProps(); err == nil && props != nil {
		info := make(map[string]string, 2)
		if t := strings.TrimSpace(props.Title); t != "" {
			info["Title"] = t
		}
		if a := strings.TrimSpace(props.Creator); a != "" {
			info["Author"] = a
		}
		if len(info) > 0 {
			layout.Info = info
		}
	}

	for i, sheet := range book.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := book.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		page := domain.Page{Number: i + 1}
		for _, row := range rows {
			if ln := rowText(row); ln != "" {
				page.Lines = append(page.Lines, domain.TextLine{Text: ln})
			}
		}
		layout.Pages = append(layout.Pages, page)
	}
	return layout, nil
}

func rowText(row []string) string {
	cells := make([]string, 0, len(row))
	for _, cell := range row {
		if c := strings.TrimSpace(cell); c != "" {
			cells = append(cells, c)
		}
	}
	return strings.Join(cells, " | ")
}
