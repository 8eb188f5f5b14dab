package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type statusCall struct {
	status domain.DocumentStatus
	errMsg string
}

type repoFake struct {
	mu          sync.Mutex
	docs        map[string]*domain.Document
	createErr   error
	statusErr   error
	saveErr     error
	statusCalls []statusCall
	saved       struct {
		contentType domain.ContentType
		chunkCount  int
		meta        domain.SourceMetadata
	}
	deleted []string
}

func newRepoFake(docs ...*domain.Document) *repoFake {
	f := &repoFake{docs: make(map[string]*domain.Document)}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	copyDoc := *doc
	f.docs[doc.ID] = &copyDoc
	return nil
}

func (f *repoFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New(id))
	}
	copyDoc := *doc
	return &copyDoc, nil
}

func (f *repoFake) ListByCollection(_ context.Context, key domain.CollectionKey) ([]domain.Document, error) {
	out := []domain.Document{}
	for _, d := range f.docs {
		if d.Collection() == key {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, errMessage string) error {
	f.statusCalls = append(f.statusCalls, statusCall{status: status, errMsg: errMessage})
	return f.statusErr
}

func (f *repoFake) SaveChunkingResult(_ context.Context, _ string, contentType domain.ContentType, chunkCount int, meta domain.SourceMetadata) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved.contentType = contentType
	f.saved.chunkCount = chunkCount
	f.saved.meta = meta
	return nil
}

func (f *repoFake) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	return nil
}

type storageFake struct {
	savedKey  string
	savedBody string
	deleted   []string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type queueFake struct {
	documentID string
	err        error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.documentID = documentID
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type chunkerFake struct {
	result *domain.ChunkedDocument
	err    error
	hint   domain.ContentType
	key    string
}

func (f *chunkerFake) Chunk(_ context.Context, storageKey, _ string, hint domain.ContentType) (*domain.ChunkedDocument, error) {
	f.key = storageKey
	f.hint = hint
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type embedderFake struct {
	vectors [][]float32
	err     error
	queries []string
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.vectors != nil {
		return f.vectors, nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.queries = append(f.queries, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type searchCall struct {
	limit  int
	filter domain.SearchFilter
}

type vectorFake struct {
	mu        sync.Mutex
	byType    map[domain.ChunkType][]domain.ScoredChunk
	all       []domain.ScoredChunk
	searchErr error
	upsertErr error
	calls     []searchCall
	upserted  []domain.HierarchicalChunk
	deletes   []domain.SearchFilter
}

func (f *vectorFake) Upsert(_ context.Context, _ domain.CollectionKey, _ *domain.Document, chunks []domain.HierarchicalChunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *vectorFake) Search(_ context.Context, _ domain.CollectionKey, _ []float32, limit int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{limit: limit, filter: filter})
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	src := f.all
	if filter.ChunkType != "" {
		src = f.byType[filter.ChunkType]
	}
	if len(src) > limit {
		src = src[:limit]
	}
	out := make([]domain.ScoredChunk, len(src))
	copy(out, src)
	return out, nil
}

func (f *vectorFake) Delete(_ context.Context, _ domain.CollectionKey, filter domain.SearchFilter) error {
	f.deletes = append(f.deletes, filter)
	return nil
}

type rerankerFake struct {
	err    error
	scores map[string]float64
	topK   int
}

func (f *rerankerFake) Rerank(_ context.Context, _ string, candidates []domain.ScoredChunk, topK int) ([]domain.ScoredChunk, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.ScoredChunk, len(candidates))
	copy(out, candidates)
	for i := range out {
		s := f.scores[out[i].ChunkID]
		out[i].RerankScore = &s
	}
	sortByRerank(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func sortByRerank(chunks []domain.ScoredChunk) {
	for i := 1; i < len(chunks); i++ {
		for j := i; j > 0 && *chunks[j].RerankScore > *chunks[j-1].RerankScore; j-- {
			chunks[j], chunks[j-1] = chunks[j-1], chunks[j]
		}
	}
}

type feedbackStoreFake struct {
	hits      []domain.FeedbackHit
	err       error
	recorded  []domain.FeedbackEntry
	threshold float64
}

func (f *feedbackStoreFake) Record(_ context.Context, entry domain.FeedbackEntry) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, entry)
	return nil
}

func (f *feedbackStoreFake) SimilarFeedback(_ context.Context, _ domain.CollectionKey, _ []float32, threshold float64) ([]domain.FeedbackHit, error) {
	f.threshold = threshold
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

type feedbackLogFake struct {
	appended []domain.FeedbackEntry
	stats    domain.FeedbackStats
	statsKey *domain.CollectionKey
}

func (f *feedbackLogFake) Append(_ context.Context, entry domain.FeedbackEntry) error {
	f.appended = append(f.appended, entry)
	return nil
}

func (f *feedbackLogFake) Stats(_ context.Context, key *domain.CollectionKey) (domain.FeedbackStats, error) {
	f.statsKey = key
	return f.stats, nil
}

type generatorFake struct {
	answer   string
	json     string
	err      error
	chunks   []domain.ScoredChunk
	prompt   string
	question string
}

func (f *generatorFake) GenerateAnswer(_ context.Context, question string, chunks []domain.ScoredChunk) (string, error) {
	f.question = question
	f.chunks = chunks
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *generatorFake) GenerateFromPrompt(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func (f *generatorFake) GenerateJSONFromPrompt(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.json, nil
}

type criticFake struct {
	eval    *domain.AnswerEvaluation
	err     error
	calls   int
	answer  string
	sources int
}

func (f *criticFake) EvaluateAnswer(_ context.Context, _ string, answer string, chunks []domain.ScoredChunk) (*domain.AnswerEvaluation, error) {
	f.calls++
	f.answer = answer
	f.sources = len(chunks)
	return f.eval, f.err
}

type observerFake struct {
	mu        sync.Mutex
	searches  []string
	degraded  []string
	noContext int
	chunked   map[domain.ChunkType]int
}

func (f *observerFake) ObserveSearch(intent string, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, intent)
}

func (f *observerFake) ObserveStageDegraded(stage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.degraded = append(f.degraded, stage)
}

func (f *observerFake) ObserveNoContext() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noContext++
}

func (f *observerFake) ObserveChunked(_ domain.ContentType, chunks []domain.HierarchicalChunk) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chunked == nil {
		f.chunked = make(map[domain.ChunkType]int)
	}
	for _, c := range chunks {
		f.chunked[c.Metadata.ChunkType]++
	}
}

var testKey = domain.CollectionKey{UserID: "u1", CollectionID: "physics"}

func scored(id string, chunkType domain.ChunkType, score float64, text string) domain.ScoredChunk {
	return domain.ScoredChunk{
		ChunkID:     id,
		DocumentID:  "doc-" + id,
		ChunkType:   chunkType,
		Text:        text,
		Score:       score,
		VectorScore: score,
	}
}
