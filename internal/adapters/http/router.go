package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/observability/metrics"
)

const (
	userIDHeader       = "X-User-Id"
	maxJSONBodyBytes   = 1 << 20
	multipartMemory    = 32 << 20
	backpressureWait   = 250 * time.Millisecond
	defaultServiceName = "api"
)

type DocumentIngestor interface {
	Upload(ctx context.Context, key domain.CollectionKey, filename, mimeType string, hint domain.ContentType, body io.Reader) (*domain.Document, error)
}

type DocumentService interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByCollection(ctx context.Context, key domain.CollectionKey) ([]domain.Document, error)
	Delete(ctx context.Context, key domain.CollectionKey, documentID string) error
}

type Retriever interface {
	DetectIntent(query string) *domain.ChunkType
	Search(ctx context.Context, key domain.CollectionKey, query string, opts domain.SearchOptions) []domain.ScoredChunk
	Answer(ctx context.Context, key domain.CollectionKey, question string, opts domain.SearchOptions) *domain.Answer
}

type FeedbackService interface {
	Record(ctx context.Context, key domain.CollectionKey, query string, documentIDs []string, label domain.FeedbackLabel) (*domain.FeedbackEntry, error)
	Stats(ctx context.Context, key *domain.CollectionKey) (domain.FeedbackStats, error)
}

type QuizGenerator interface {
	Generate(ctx context.Context, key domain.CollectionKey, topic string, count int) (*domain.Quiz, error)
}

type Services struct {
	Ingest    DocumentIngestor
	Documents DocumentService
	Retrieval Retriever
	Feedback  FeedbackService
	Quiz      QuizGenerator
}

type Router struct {
	services Services
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger

	apiKey         string
	maxUploadBytes int64
	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

// NewRouter takes optional metrics; a nil value disables /metrics and
// request instrumentation.
func NewRouter(cfg config.Config, services Services, m *metrics.HTTPServerMetrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		services:       services,
		metrics:        m,
		logger:         logger,
		apiKey:         cfg.APIKey,
		maxUploadBytes: cfg.MaxUploadBytes,
		rateLimitRPS:   cfg.APIRateLimitRPS,
		rateLimitBurst: cfg.APIRateLimitBurst,
		maxInFlight:    cfg.APIMaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/collections/{collection}/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/collections/{collection}/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/collections/{collection}/documents/{id}", rt.getDocument)
	mux.HandleFunc("DELETE /v1/collections/{collection}/documents/{id}", rt.deleteDocument)

	mux.HandleFunc("POST /v1/collections/{collection}/search", rt.search)
	mux.HandleFunc("POST /v1/collections/{collection}/answer", rt.answer)
	mux.HandleFunc("POST /v1/collections/{collection}/quiz", rt.quiz)
	mux.HandleFunc("POST /v1/collections/{collection}/feedback", rt.recordFeedback)
	mux.HandleFunc("GET /v1/feedback/stats", rt.feedbackStats)
	mux.HandleFunc("GET /v1/intent", rt.detectIntent)

	var handler http.Handler = mux
	handler = bearerAuthMiddleware(handler, rt.apiKey)
	handler = backpressureMiddleware(handler, rt.maxInFlight, backpressureWait, rt.rejected)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, rt.rejected)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(defaultServiceName, handler)
	}
	handler = accessLogMiddleware(handler, rt.logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) rejected(reason string) {
	if rt.metrics != nil {
		rt.metrics.RecordRejected(defaultServiceName, reason)
	}
}

// collectionKey combines the caller identity header with the path segment.
func collectionKey(r *http.Request) (domain.CollectionKey, error) {
	key := domain.CollectionKey{
		UserID:       strings.TrimSpace(r.Header.Get(userIDHeader)),
		CollectionID: strings.TrimSpace(r.PathValue("collection")),
	}
	if err := key.Validate(); err != nil {
		return domain.CollectionKey{}, err
	}
	return key, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("invalid json"))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	class := classifyError(err)
	message := err.Error()
	if class.status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, class.status, map[string]string{"error": message, "code": class.code})
}

func (rt *Router) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if mapErrorToHTTPStatus(err) >= http.StatusInternalServerError {
		rt.logger.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"operation", op,
			"error", err,
		)
	}
	writeError(w, err)
}
