package usecase

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

const opUpload = "upload document"

// IngestDocumentUseCase accepts uploads into a collection and hands them to
// the chunking worker through the queue.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
	logger  *slog.Logger
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	logger *slog.Logger,
) *IngestDocumentUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestDocumentUseCase{repo: repo, storage: storage, queue: queue, logger: logger}
}

// Upload stores the file, records it as uploaded and queues it for chunking.
// A document whose event cannot be published is marked failed so it does not
// sit in uploaded forever.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	key domain.CollectionKey,
	filename, mimeType string,
	hint domain.ContentType,
	body io.Reader,
) (*domain.Document, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(filename) == "" {
		return nil, invalidUpload("filename is required")
	}
	if body == nil {
		return nil, invalidUpload("body is required")
	}
	contentHint, err := domain.ParseContentType(string(hint))
	if err != nil {
		return nil, err
	}

	buffered := bufio.NewReader(body)
	if _, err := buffered.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalidUpload("file is empty")
		}
		return nil, fmt.Errorf("read upload: %w", err)
	}

	doc := newDocument(key, filename, mimeType, contentHint)
	counted := &countingReader{r: buffered}
	if err := uc.storage.Save(ctx, doc.StoragePath, counted); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		if delErr := uc.storage.Delete(ctx, doc.StoragePath); delErr != nil {
			uc.logger.Warn("orphan_object_cleanup_failed", "storage_key", doc.StoragePath, "error", delErr)
		}
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		if statusErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, "enqueue failed: "+err.Error()); statusErr != nil {
			uc.logger.Warn("document_status_update_failed", "document_id", doc.ID, "error", statusErr)
		}
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	uc.logger.Info("document_uploaded",
		"document_id", doc.ID,
		"collection", key.String(),
		"content_hint", string(contentHint),
		"mime_type", doc.MimeType,
		"bytes", counted.n,
	)
	return doc, nil
}

func newDocument(key domain.CollectionKey, filename, mimeType string, hint domain.ContentType) *domain.Document {
	id := uuid.NewString()
	now := time.Now().UTC()
	return &domain.Document{
		ID:           id,
		UserID:       key.UserID,
		CollectionID: key.CollectionID,
		Filename:     filepath.Base(filename),
		MimeType:     resolveMimeType(filename, mimeType),
		StoragePath:  id + "_" + sanitizeFilename(filename),
		ContentHint:  hint,
		Status:       domain.StatusUploaded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// resolveMimeType replaces a missing or generic declared type with the one
// registered for the file extension.
func resolveMimeType(filename, declared string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	if declared == "" {
		return "application/octet-stream"
	}
	return declared
}

func invalidUpload(reason string) error {
	return domain.WrapError(domain.ErrInvalidInput, opUpload, errors.New(reason))
}

// sanitizeFilename keeps ASCII letters, digits, dot, dash and underscore.
func sanitizeFilename(name string) string {
	base := strings.Map(func(r rune) rune {
		if r < 0x80 && (r == '.' || r == '-' || r == '_' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return r
		}
		return '_'
	}, filepath.Base(name))
	base = strings.TrimLeft(base, ".")
	if base == "" {
		return "document.bin"
	}
	return base
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
