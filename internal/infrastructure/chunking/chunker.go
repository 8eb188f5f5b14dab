package chunking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

// Service is the ingestion entry point: layout extraction, content-type
// selection, header detection and chunk building.
type Service struct {
	extractor ports.LayoutExtractor
	selector  *Selector
	structure *StructureExtractor
	builder   *Builder
	logger    *slog.Logger
}

func NewService(extractor ports.LayoutExtractor, selector *Selector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if selector == nil {
		selector = NewSelector(nil, logger)
	}
	return &Service{
		extractor: extractor,
		selector:  selector,
		structure: NewStructureExtractor(logger),
		builder:   NewBuilder(logger),
		logger:    logger,
	}
}

func (s *Service) Chunk(
	ctx context.Context,
	storageKey, documentID string,
	hint domain.ContentType,
) (*domain.ChunkedDocument, error) {
	if documentID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("document id is required"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	layout, err := s.extractor.Extract(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("extract layout: %w", err)
	}

	contentType, strategy := s.selector.Select(layout, hint)
	cfg := strategy.Config()

	lines := collectLines(layout)
	headers := s.structure.extract(layout, lines)
	chunks, err := s.builder.build(ctx, documentID, lines, headers, cfg)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document_chunked",
		"document_id", documentID,
		"format", layout.Format,
		"content_type", string(contentType),
		"strategy", cfg.Description,
		"headers", len(headers),
		"chunks", len(chunks),
		"duration_ms", float64(time.Since(started).Microseconds())/1000.0,
	)

	return &domain.ChunkedDocument{
		DocumentID:  documentID,
		ContentType: contentType,
		Strategy:    cfg,
		Metadata:    strategy.ExtractMetadata(layout),
		Chunks:      chunks,
	}, nil
}

// ChunkDocument returns only the chunks of Chunk.
func (s *Service) ChunkDocument(
	ctx context.Context,
	storageKey, documentID string,
	hint domain.ContentType,
) ([]domain.HierarchicalChunk, error) {
	result, err := s.Chunk(ctx, storageKey, documentID, hint)
	if err != nil {
		return nil, err
	}
	return result.Chunks, nil
}
