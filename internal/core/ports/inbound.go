package ports

import (
	"context"
	"io"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, key domain.CollectionKey, filename, mimeType string, hint domain.ContentType, body io.Reader) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByCollection(ctx context.Context, key domain.CollectionKey) ([]domain.Document, error)
}

// DocumentRemover deletes a document with its chunks.
type DocumentRemover interface {
	Delete(ctx context.Context, key domain.CollectionKey, documentID string) error
}

// DocumentProcessor is the inbound contract for asynchronous document processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// RetrievalService never fails a query: backend errors degrade to empty results.
type RetrievalService interface {
	DetectIntent(query string) *domain.ChunkType
	Search(ctx context.Context, key domain.CollectionKey, query string, opts domain.SearchOptions) []domain.ScoredChunk
	Answer(ctx context.Context, key domain.CollectionKey, question string, opts domain.SearchOptions) *domain.Answer
}

// FeedbackService records user feedback and reports aggregates.
type FeedbackService interface {
	Record(ctx context.Context, key domain.CollectionKey, query string, documentIDs []string, label domain.FeedbackLabel) (*domain.FeedbackEntry, error)
	Stats(ctx context.Context, key *domain.CollectionKey) (domain.FeedbackStats, error)
}

// QuizGenerator builds multiple-choice questions from a collection.
type QuizGenerator interface {
	Generate(ctx context.Context, key domain.CollectionKey, topic string, count int) (*domain.Quiz, error)
}
