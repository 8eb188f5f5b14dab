package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

// DocumentUseCase serves reads and deletion of uploaded documents.
type DocumentUseCase struct {
	repo     ports.DocumentRepository
	storage  ports.ObjectStorage
	vectorDB ports.VectorStore
	cache    ports.ChunkCache
	logger   *slog.Logger
}

func NewDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	vectorDB ports.VectorStore,
	cache ports.ChunkCache,
	logger *slog.Logger,
) *DocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentUseCase{
		repo:     repo,
		storage:  storage,
		vectorDB: vectorDB,
		cache:    cache,
		logger:   logger,
	}
}

func (uc *DocumentUseCase) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *DocumentUseCase) ListByCollection(ctx context.Context, key domain.CollectionKey) ([]domain.Document, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	return uc.repo.ListByCollection(ctx, key)
}

// Delete removes the document's vectors first so a failure never leaves
// searchable chunks behind a deleted row. A document from another
// collection is reported as not found.
func (uc *DocumentUseCase) Delete(ctx context.Context, key domain.CollectionKey, documentID string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Collection() != key {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", errors.New("document belongs to another collection"))
	}

	if err := uc.vectorDB.Delete(ctx, key, domain.SearchFilter{DocumentID: documentID}); err != nil {
		return fmt.Errorf("delete document vectors: %w", err)
	}
	if err := uc.repo.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document row: %w", err)
	}
	if err := uc.storage.Delete(ctx, doc.StoragePath); err != nil {
		uc.logger.Warn("document_object_delete_failed", "document_id", documentID, "error", err)
	}
	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, documentID); err != nil {
			uc.logger.Warn("chunk_cache_invalidate_failed", "document_id", documentID, "error", err)
		}
	}

	uc.logger.Info("document_deleted", "document_id", documentID, "collection", key.String())
	return nil
}
