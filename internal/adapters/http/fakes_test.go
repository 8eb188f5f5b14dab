package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const testUser = "u1"

type ingestFake struct {
	err     error
	gotKey  domain.CollectionKey
	gotHint domain.ContentType
	gotBody []byte
}

func (f *ingestFake) Upload(_ context.Context, key domain.CollectionKey, filename, mimeType string, hint domain.ContentType, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.gotKey = key
	f.gotHint = hint
	f.gotBody = raw

	now := time.Now().UTC()
	return &domain.Document{
		ID:           "doc-1",
		UserID:       key.UserID,
		CollectionID: key.CollectionID,
		Filename:     filename,
		MimeType:     mimeType,
		StoragePath:  "doc-1_" + filename,
		ContentHint:  hint,
		Status:       domain.StatusUploaded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

type documentsFake struct {
	doc       *domain.Document
	docs      []domain.Document
	err       error
	deleted   []string
	deleteKey domain.CollectionKey
}

func (f *documentsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.doc == nil || f.doc.ID != id {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", io.EOF)
	}
	return f.doc, nil
}

func (f *documentsFake) ListByCollection(context.Context, domain.CollectionKey) ([]domain.Document, error) {
	return f.docs, f.err
}

func (f *documentsFake) Delete(_ context.Context, key domain.CollectionKey, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleteKey = key
	f.deleted = append(f.deleted, id)
	return nil
}

type retrieverFake struct {
	results []domain.ScoredChunk
	answer  *domain.Answer
	intent  *domain.ChunkType
	gotOpts domain.SearchOptions
	gotKey  domain.CollectionKey
}

func (f *retrieverFake) DetectIntent(string) *domain.ChunkType { return f.intent }

func (f *retrieverFake) Search(_ context.Context, key domain.CollectionKey, _ string, opts domain.SearchOptions) []domain.ScoredChunk {
	f.gotKey = key
	f.gotOpts = opts
	return f.results
}

func (f *retrieverFake) Answer(_ context.Context, key domain.CollectionKey, _ string, opts domain.SearchOptions) *domain.Answer {
	f.gotKey = key
	f.gotOpts = opts
	if f.answer == nil {
		return &domain.Answer{Text: domain.NoContextAnswer, Sources: []domain.ScoredChunk{}}
	}
	return f.answer
}

type feedbackFake struct {
	err      error
	stats    domain.FeedbackStats
	gotLabel domain.FeedbackLabel
	gotKey   *domain.CollectionKey
}

func (f *feedbackFake) Record(_ context.Context, key domain.CollectionKey, query string, ids []string, label domain.FeedbackLabel) (*domain.FeedbackEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.gotLabel = label
	return &domain.FeedbackEntry{ID: "fb-1", Collection: key, Query: query, DocumentIDs: ids, Label: label}, nil
}

func (f *feedbackFake) Stats(_ context.Context, key *domain.CollectionKey) (domain.FeedbackStats, error) {
	f.gotKey = key
	if key != nil {
		if err := key.Validate(); err != nil {
			return domain.FeedbackStats{}, err
		}
	}
	return f.stats, f.err
}

type quizFake struct {
	err error
}

func (f quizFake) Generate(_ context.Context, _ domain.CollectionKey, topic string, _ int) (*domain.Quiz, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Quiz{Topic: topic, Questions: []domain.QuizQuestion{{Question: "q?", Options: []string{"a", "b"}}}}, nil
}

type testDeps struct {
	ingest    *ingestFake
	documents *documentsFake
	retriever *retrieverFake
	feedback  *feedbackFake
	quiz      quizFake
}

func newTestDeps() *testDeps {
	return &testDeps{
		ingest:    &ingestFake{},
		documents: &documentsFake{},
		retriever: &retrieverFake{},
		feedback:  &feedbackFake{},
	}
}

func (d *testDeps) handler(cfg config.Config) http.Handler {
	return NewRouter(cfg, Services{
		Ingest:    d.ingest,
		Documents: d.documents,
		Retrieval: d.retriever,
		Feedback:  d.feedback,
		Quiz:      d.quiz,
	}, nil, nil).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestDeps().handler(cfg)
}
