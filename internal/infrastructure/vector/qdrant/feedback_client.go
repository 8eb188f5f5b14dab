package qdrant

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const (
	DefaultFeedbackCollection = "feedback"

	feedbackQueryLimit = 50
)

var feedbackIndexedFields = []string{"user_id", "collection_id"}

// FeedbackClient stores query vectors with their feedback labels so later
// queries can find similar past judgements.
type FeedbackClient struct {
	rest       *rest
	collection string
}

func NewFeedbackClient(baseURL, collection string, opts Options) *FeedbackClient {
	if collection == "" {
		collection = DefaultFeedbackCollection
	}
	return &FeedbackClient{rest: newRest(baseURL, opts), collection: collection}
}

func (c *FeedbackClient) Record(ctx context.Context, entry domain.FeedbackEntry) error {
	if err := entry.Collection.Validate(); err != nil {
		return err
	}
	if len(entry.QueryVector) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "qdrant feedback record", fmt.Errorf("query vector is empty"))
	}
	if err := c.rest.ensureCollection(ctx, c.collection, len(entry.QueryVector), feedbackIndexedFields); err != nil {
		return err
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	docIDs := entry.DocumentIDs
	if docIDs == nil {
		docIDs = []string{}
	}
	body := map[string]any{
		"points": []point{{
			ID:     entry.ID,
			Vector: entry.QueryVector,
			Payload: map[string]any{
				"feedback_id":   entry.ID,
				"user_id":       entry.Collection.UserID,
				"collection_id": entry.Collection.CollectionID,
				"query":         entry.Query,
				"doc_ids":       docIDs,
				"label":         int(entry.Label),
				"created_at":    createdAt.Format(time.RFC3339Nano),
			},
		}},
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", c.collection)
	err := c.rest.call(ctx, http.MethodPut, path, body, nil, "feedback_upsert")
	if err != nil && isStatus(err, http.StatusNotFound) {
		c.rest.forget(c.collection)
	}
	return err
}

// SimilarFeedback returns past feedback on queries whose cosine similarity to
// queryVector is at least threshold.
func (c *FeedbackClient) SimilarFeedback(
	ctx context.Context,
	key domain.CollectionKey,
	queryVector []float32,
	threshold float64,
) ([]domain.FeedbackHit, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if len(queryVector) == 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"query":           queryVector,
		"limit":           feedbackQueryLimit,
		"with_payload":    true,
		"score_threshold": threshold,
		"filter": map[string]any{
			"must": []map[string]any{
				matchCondition("user_id", key.UserID),
				matchCondition("collection_id", key.CollectionID),
			},
		},
	}

	var queryResp struct {
		Result struct {
			Points []struct {
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/query", c.collection)
	if err := c.rest.call(ctx, http.MethodPost, path, reqBody, &queryResp, "feedback_query"); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}

	hits := make([]domain.FeedbackHit, 0, len(queryResp.Result.Points))
	for _, p := range queryResp.Result.Points {
		hits = append(hits, domain.FeedbackHit{
			DocumentIDs: getStringSlicePayload(p.Payload, "doc_ids"),
			Label:       domain.FeedbackLabel(getIntPayload(p.Payload, "label")),
			Similarity:  p.Score,
		})
	}
	return hits, nil
}
