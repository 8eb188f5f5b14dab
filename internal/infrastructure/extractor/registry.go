package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/extractor/html"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/extractor/markdown"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/textbook-rag/internal/infrastructure/extractor/xlsx"
)

const defaultMaxBytes = 200 << 20

// Parser converts raw document bytes of one format into a layout.
type Parser interface {
	Parse(ctx context.Context, raw []byte) (*domain.Layout, error)
}

// Registry reads documents from object storage and dispatches them to a
// format parser chosen by content sniffing and file extension.
type Registry struct {
	storage  ports.ObjectStorage
	parsers  map[string]Parser
	maxBytes int64
	logger   *slog.Logger
}

func NewRegistry(storage ports.ObjectStorage, maxBytes int64, logger *slog.Logger) *Registry {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		storage:  storage,
		parsers:  make(map[string]Parser),
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// NewDefaultRegistry registers every built-in format.
func NewDefaultRegistry(storage ports.ObjectStorage, maxBytes int64, logger *slog.Logger) *Registry {
	r := NewRegistry(storage, maxBytes, logger)
	r.Register(pdf.Format, pdf.NewParser())
	r.Register(plaintext.Format, plaintext.NewParser())
	r.Register(markdown.Format, markdown.NewParser())
	r.Register(html.Format, html.NewParser())
	r.Register(xlsx.Format, xlsx.NewParser())
	return r
}

func (r *Registry) Register(format string, parser Parser) {
	r.parsers[format] = parser
}

func (r *Registry) Extract(ctx context.Context, storageKey string) (*domain.Layout, error) {
	reader, err := r.storage.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, r.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read source document: %w", err)
	}
	if int64(len(raw)) > r.maxBytes {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read source document",
			fmt.Errorf("document exceeds %d bytes", r.maxBytes))
	}

	format := DetectFormat(storageKey, raw)
	parser, ok := r.parsers[format]
	if !ok {
		return nil, domain.WrapError(domain.ErrUnsupportedContentType, "extract layout",
			fmt.Errorf("no parser for %q (%s)", filepath.Ext(storageKey), http.DetectContentType(raw)))
	}

	layout, err := parser.Parse(ctx, raw)
	if err != nil {
		return nil, err
	}
	if layout.Format == "" {
		layout.Format = format
	}
	r.logger.Debug("layout_extracted",
		"storage_key", storageKey,
		"format", format,
		"size_bytes", layout.SizeBytes,
		"pages", len(layout.Pages),
	)
	return layout, nil
}

// DetectFormat prefers magic bytes, then the extension, then falls back to
// plain text for valid UTF-8. Unknown binaries return "".
func DetectFormat(name string, raw []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case bytes.HasPrefix(raw, []byte("%PDF-")):
		return pdf.Format
	case bytes.HasPrefix(raw, []byte("PK\x03\x04")):
		if ext == ".xlsx" || ext == ".xlsm" {
			return xlsx.Format
		}
		return ""
	}

	switch ext {
	case ".md", ".markdown":
		return markdown.Format
	case ".html", ".htm", ".xhtml":
		return html.Format
	}

	if !utf8.Valid(raw) {
		return ""
	}
	if strings.HasPrefix(http.DetectContentType(raw), "text/html") {
		return html.Format
	}
	return plaintext.Format
}
