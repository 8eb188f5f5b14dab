package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

type ProcessDocumentUseCase struct {
	repo     ports.DocumentRepository
	chunker  ports.DocumentChunker
	embedder ports.Embedder
	vectorDB ports.VectorStore
	observer ports.ChunkingObserver
	logger   *slog.Logger
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	chunker ports.DocumentChunker,
	embedder ports.Embedder,
	vectorDB ports.VectorStore,
	observer ports.ChunkingObserver,
	logger *slog.Logger,
) *ProcessDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:     repo,
		chunker:  chunker,
		embedder: embedder,
		vectorDB: vectorDB,
		observer: observer,
		logger:   logger,
	}
}

// ProcessByID runs chunk -> embed -> index for one uploaded document and
// leaves it ready or failed.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	started := time.Now()
	if err := uc.markStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	doc, result, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.persistChunkingResult(ctx, doc.ID, result); err != nil {
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}

	if uc.observer != nil {
		uc.observer.ObserveChunked(result.ContentType, result.Chunks)
	}
	uc.logger.Info("document_processed",
		"document_id", documentID,
		"content_type", string(result.ContentType),
		"chunks", len(result.Chunks),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (*domain.Document, *domain.ChunkedDocument, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	result, err := uc.chunk(ctx, doc)
	if err != nil {
		return nil, nil, err
	}

	chunks, err := uc.embed(ctx, result.Chunks)
	if err != nil {
		return nil, nil, err
	}

	doc.ContentType = result.ContentType
	if err := uc.index(ctx, doc, chunks); err != nil {
		return nil, nil, err
	}

	return doc, result, nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) chunk(ctx context.Context, doc *domain.Document) (*domain.ChunkedDocument, error) {
	result, err := uc.chunker.Chunk(ctx, doc.StoragePath, doc.ID, doc.ContentHint)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}
	if result == nil || len(result.Chunks) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return result, nil
}

// embed returns copies of chunks with vectors set; cached chunks are shared
// and must not be mutated.
func (uc *ProcessDocumentUseCase) embed(ctx context.Context, chunks []domain.HierarchicalChunk) ([]domain.HierarchicalChunk, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"embed chunks",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)),
		)
	}

	out := make([]domain.HierarchicalChunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		out[i].EmbeddingVector = vectors[i]
	}
	return out, nil
}

// index replaces whatever the vector store held for this document.
func (uc *ProcessDocumentUseCase) index(ctx context.Context, doc *domain.Document, chunks []domain.HierarchicalChunk) error {
	key := doc.Collection()
	if err := uc.vectorDB.Delete(ctx, key, domain.SearchFilter{DocumentID: doc.ID}); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}
	if err := uc.vectorDB.Upsert(ctx, key, doc, chunks); err != nil {
		return fmt.Errorf("index chunks in vector db: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) persistChunkingResult(ctx context.Context, documentID string, result *domain.ChunkedDocument) error {
	if err := uc.repo.SaveChunkingResult(ctx, documentID, result.ContentType, len(result.Chunks), result.Metadata); err != nil {
		return fmt.Errorf("save chunking result: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) markStatus(ctx context.Context, documentID string, status domain.DocumentStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, documentID, status, errMessage)
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	uc.logger.Error("document_process_failed", "document_id", documentID, "error", processErr)
	return uc.markStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}
