package ports

import (
	"context"
	"io"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByCollection(ctx context.Context, key domain.CollectionKey) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveChunkingResult(ctx context.Context, id string, contentType domain.ContentType, chunkCount int, meta domain.SourceMetadata) error
	Delete(ctx context.Context, id string) error
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// LayoutExtractor reads a stored source document into positioned text.
type LayoutExtractor interface {
	Extract(ctx context.Context, storageKey string) (*domain.Layout, error)
}

// DocumentChunker turns a stored source document into hierarchical chunks.
type DocumentChunker interface {
	Chunk(ctx context.Context, storageKey, documentID string, hint domain.ContentType) (*domain.ChunkedDocument, error)
}

// ChunkCache memoizes chunking results by document id.
type ChunkCache interface {
	Get(ctx context.Context, documentID string) (*domain.ChunkedDocument, bool, error)
	Put(ctx context.Context, documentID string, result *domain.ChunkedDocument) error
	Delete(ctx context.Context, documentID string) error
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore indexes chunks and performs semantic search. Every call is
// scoped to one logical collection.
type VectorStore interface {
	Upsert(ctx context.Context, key domain.CollectionKey, doc *domain.Document, chunks []domain.HierarchicalChunk) error
	Search(ctx context.Context, key domain.CollectionKey, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.ScoredChunk, error)
	Delete(ctx context.Context, key domain.CollectionKey, filter domain.SearchFilter) error
}

// Reranker re-scores a candidate set for a query and returns at most topK of
// them, best first, with RerankScore set.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.ScoredChunk, topK int) ([]domain.ScoredChunk, error)
}

// FeedbackStore keeps query vectors with their thumbs-up/down labels.
type FeedbackStore interface {
	Record(ctx context.Context, entry domain.FeedbackEntry) error
	SimilarFeedback(ctx context.Context, key domain.CollectionKey, queryVector []float32, threshold float64) ([]domain.FeedbackHit, error)
}

// FeedbackLog is the relational audit trail of feedback.
type FeedbackLog interface {
	Append(ctx context.Context, entry domain.FeedbackEntry) error
	Stats(ctx context.Context, key *domain.CollectionKey) (domain.FeedbackStats, error)
}

// AnswerGenerator creates the final user-facing answer.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, chunks []domain.ScoredChunk) (string, error)
	GenerateFromPrompt(ctx context.Context, prompt string) (string, error)
	GenerateJSONFromPrompt(ctx context.Context, prompt string) (string, error)
}

// AnswerCritic scores a generated answer against the chunks it was built from.
type AnswerCritic interface {
	EvaluateAnswer(ctx context.Context, question, answer string, chunks []domain.ScoredChunk) (*domain.AnswerEvaluation, error)
}

// ChunkingObserver receives per-document chunking results for metrics.
type ChunkingObserver interface {
	ObserveChunked(contentType domain.ContentType, chunks []domain.HierarchicalChunk)
}

// RetrievalObserver receives retrieval pipeline signals for metrics.
type RetrievalObserver interface {
	ObserveSearch(intent string, results int)
	ObserveStageDegraded(stage string)
	ObserveNoContext()
}
