package qdrant

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const upsertBatchSize = 128

var chunkIndexedFields = []string{"document_id", "metadata.collection_id", "metadata.chunk_type"}

// Client stores hierarchical chunks. Each user owns one physical collection;
// logical collections are separated by the metadata.collection_id payload.
type Client struct {
	rest *rest
}

func New(baseURL string, opts Options) *Client {
	return &Client{rest: newRest(baseURL, opts)}
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, key domain.CollectionKey, doc *domain.Document, chunks []domain.HierarchicalChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := key.Validate(); err != nil {
		return err
	}
	vectorSize := len(chunks[0].EmbeddingVector)
	for _, chunk := range chunks {
		if len(chunk.EmbeddingVector) == 0 || len(chunk.EmbeddingVector) != vectorSize {
			return domain.WrapError(domain.ErrInvalidInput, "qdrant upsert",
				fmt.Errorf("chunk %s has vector size %d, want %d", chunk.ChunkID, len(chunk.EmbeddingVector), vectorSize))
		}
	}

	collection := key.PhysicalName()
	if err := c.rest.ensureCollection(ctx, collection, vectorSize, chunkIndexedFields); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		points := make([]point, 0, end-start)
		for _, chunk := range chunks[start:end] {
			points = append(points, point{
				ID:      chunk.ChunkID,
				Vector:  chunk.EmbeddingVector,
				Payload: chunkPayload(key, doc, chunk),
			})
		}
		path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
		if err := c.rest.call(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert"); err != nil {
			if isStatus(err, http.StatusNotFound) {
				c.rest.forget(collection)
			}
			return err
		}
	}
	return nil
}

func (c *Client) Search(
	ctx context.Context,
	key domain.CollectionKey,
	queryVector []float32,
	limit int,
	filter domain.SearchFilter,
) ([]domain.ScoredChunk, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if len(queryVector) == 0 || limit <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
		"filter":       buildChunkFilter(key, filter),
	}

	var searchResp struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", key.PhysicalName())
	if err := c.rest.call(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]domain.ScoredChunk, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		chunk := decodeChunk(r.Payload)
		chunk.Score = r.Score
		chunk.VectorScore = r.Score
		out = append(out, chunk)
	}
	return out, nil
}

// Delete removes every point of the logical collection matching filter.
// A missing physical collection is not an error.
func (c *Client) Delete(ctx context.Context, key domain.CollectionKey, filter domain.SearchFilter) error {
	if err := key.Validate(); err != nil {
		return err
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", key.PhysicalName())
	err := c.rest.call(ctx, http.MethodPost, path, map[string]any{"filter": buildChunkFilter(key, filter)}, nil, "delete")
	if err != nil && !isStatus(err, http.StatusNotFound) {
		return err
	}
	return nil
}

func buildChunkFilter(key domain.CollectionKey, filter domain.SearchFilter) map[string]any {
	must := []map[string]any{matchCondition("metadata.collection_id", key.CollectionID)}
	if filter.ChunkType != "" {
		must = append(must, matchCondition("metadata.chunk_type", string(filter.ChunkType)))
	}
	if filter.DocumentID != "" {
		must = append(must, matchCondition("document_id", filter.DocumentID))
	}
	return map[string]any{"must": must}
}

func chunkPayload(key domain.CollectionKey, doc *domain.Document, chunk domain.HierarchicalChunk) map[string]any {
	metadata := map[string]any{
		"collection_id": key.CollectionID,
		"user_id":       key.UserID,
		"chunk_type":    string(chunk.Metadata.ChunkType),
		"topic_id":      chunk.Metadata.TopicID,
		"chapter_title": chunk.Topic.ChapterTitle,
		"section_num":   chunk.Topic.SectionNum,
		"section_title": chunk.Topic.SectionTitle,
		"page_start":    chunk.Topic.PageStart,
		"page_end":      chunk.Topic.PageEnd,
		"key_terms":     nonNil(chunk.Metadata.KeyTerms),
		"equations":     nonNil(chunk.Metadata.Equations),
		"has_equations": chunk.Metadata.HasEquations,
		"has_diagrams":  chunk.Metadata.HasDiagrams,
	}
	if chunk.Topic.ChapterNum != nil {
		metadata["chapter_num"] = *chunk.Topic.ChapterNum
	}
	if chunk.Metadata.DifficultyLevel != "" {
		metadata["difficulty_level"] = chunk.Metadata.DifficultyLevel
	}

	payload := map[string]any{
		"document_id": chunk.DocumentID,
		"chunk_id":    chunk.ChunkID,
		"chunk_index": chunk.ChunkIndex,
		"text":        chunk.Text,
		"metadata":    metadata,
	}
	if doc != nil {
		payload["source"] = doc.Filename
		payload["content_type"] = string(doc.ContentType)
	}
	return payload
}

func decodeChunk(payload map[string]any) domain.ScoredChunk {
	metadata := getMapPayload(payload, "metadata")
	chunkType, err := domain.ParseChunkType(getStringPayload(metadata, "chunk_type"))
	if err != nil {
		chunkType = domain.ChunkOther
	}
	return domain.ScoredChunk{
		ChunkID:    getStringPayload(payload, "chunk_id"),
		DocumentID: getStringPayload(payload, "document_id"),
		ChunkIndex: getIntPayload(payload, "chunk_index"),
		Source:     getStringPayload(payload, "source"),
		ChunkType:  chunkType,
		Topic: domain.TopicMetadata{
			ChapterNum:   getOptionalIntPayload(metadata, "chapter_num"),
			ChapterTitle: getStringPayload(metadata, "chapter_title"),
			SectionNum:   getStringPayload(metadata, "section_num"),
			SectionTitle: getStringPayload(metadata, "section_title"),
			PageStart:    getIntPayload(metadata, "page_start"),
			PageEnd:      getIntPayload(metadata, "page_end"),
		},
		Text: getStringPayload(payload, "text"),
	}
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
