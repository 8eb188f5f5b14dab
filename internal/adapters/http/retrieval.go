package httpadapter

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type searchRequest struct {
	Query    string `json:"query"`
	Limit    int    `json:"limit"`
	Rerank   *bool  `json:"rerank"`
	Feedback *bool  `json:"feedback"`
}

// options defaults both optional stages to on.
func (req searchRequest) options() domain.SearchOptions {
	opts := domain.SearchOptions{Limit: req.Limit, Rerank: true, Feedback: true}
	if req.Rerank != nil {
		opts.Rerank = *req.Rerank
	}
	if req.Feedback != nil {
		opts.Feedback = *req.Feedback
	}
	return opts
}

type searchResponse struct {
	Query   string               `json:"query"`
	Intent  *domain.ChunkType    `json:"intent"`
	Results []domain.ScoredChunk `json:"results"`
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	key, err := collectionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("query is required")))
		return
	}

	results := rt.services.Retrieval.Search(r.Context(), key, query, req.options())
	if results == nil {
		results = []domain.ScoredChunk{}
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Query:   query,
		Intent:  rt.services.Retrieval.DetectIntent(query),
		Results: results,
	})
}

func (rt *Router) answer(w http.ResponseWriter, r *http.Request) {
	key, err := collectionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		searchRequest
		Question string `json:"question"`
		Critic   bool   `json:"critic"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		question = strings.TrimSpace(req.Query)
	}
	if question == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("question is required")))
		return
	}

	opts := req.options()
	opts.Critic = req.Critic
	writeJSON(w, http.StatusOK, rt.services.Retrieval.Answer(r.Context(), key, question, opts))
}

func (rt *Router) quiz(w http.ResponseWriter, r *http.Request) {
	key, err := collectionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Topic string `json:"topic"`
		Count int    `json:"count"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	quiz, err := rt.services.Quiz.Generate(r.Context(), key, req.Topic, req.Count)
	if err != nil {
		rt.fail(w, r, "generate_quiz", err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (rt *Router) recordFeedback(w http.ResponseWriter, r *http.Request) {
	key, err := collectionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Query       string   `json:"query"`
		DocumentIDs []string `json:"doc_ids"`
		Label       *int     `json:"label"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Label == nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "record feedback", errors.New("label is required")))
		return
	}

	entry, err := rt.services.Feedback.Record(r.Context(), key, req.Query, req.DocumentIDs, domain.FeedbackLabel(*req.Label))
	if err != nil {
		rt.fail(w, r, "record_feedback", err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// feedbackStats reports one collection when ?collection= carries a key in
// the escaped "user/collection" form listed by the response, and every
// collection otherwise.
func (rt *Router) feedbackStats(w http.ResponseWriter, r *http.Request) {
	var key *domain.CollectionKey
	if raw := strings.TrimSpace(r.URL.Query().Get("collection")); raw != "" {
		parsed, err := domain.ParseCollectionKey(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		key = &parsed
	}

	stats, err := rt.services.Feedback.Stats(r.Context(), key)
	if err != nil {
		rt.fail(w, r, "feedback_stats", err)
		return
	}
	if stats.Collections == nil {
		stats.Collections = []string{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) detectIntent(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "detect intent", errors.New("query parameter q is required")))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":  query,
		"intent": rt.services.Retrieval.DetectIntent(query),
	})
}
