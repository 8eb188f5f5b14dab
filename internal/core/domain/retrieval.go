package domain

// SearchFilter narrows a vector search inside one logical collection.
type SearchFilter struct {
	ChunkType  ChunkType
	DocumentID string
}

// ScoredChunk is one retrieval hit. Score is the value results are ranked
// and filtered by: the fused score after feedback fusion, else the rerank
// score, else the vector similarity, which VectorScore always keeps.
type ScoredChunk struct {
	ChunkID       string        `json:"chunk_id"`
	DocumentID    string        `json:"document_id"`
	ChunkIndex    int           `json:"chunk_index"`
	Source        string        `json:"source,omitempty"`
	ChunkType     ChunkType     `json:"chunk_type"`
	Topic         TopicMetadata `json:"topic_metadata"`
	Text          string        `json:"text"`
	Score         float64       `json:"score"`
	VectorScore   float64       `json:"vector_score"`
	RerankScore   *float64      `json:"rerank_score,omitempty"`
	FeedbackScore *float64      `json:"feedback_score,omitempty"`
}

type SearchOptions struct {
	Limit    int
	Rerank   bool
	Feedback bool
	// Critic asks for an evaluation of a generated answer; Search ignores it.
	Critic bool
}

// NoContextAnswer is returned whenever nothing relevant was retrieved.
const NoContextAnswer = "Context not found"

type Answer struct {
	Text       string            `json:"text"`
	Sources    []ScoredChunk     `json:"sources"`
	Confidence float64           `json:"confidence"`
	IsRelevant bool              `json:"is_relevant"`
	Intent     *ChunkType        `json:"intent,omitempty"`
	Critic     *AnswerEvaluation `json:"critic,omitempty"`
}

// AnswerEvaluation is a model's judgement of how completely an answer covers
// the question given the retrieved context.
type AnswerEvaluation struct {
	Confidence            float64  `json:"confidence"`
	MissingInfo           string   `json:"missing_info"`
	EnrichmentSuggestions []string `json:"enrichment_suggestions"`
}

type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation,omitempty"`
	SourceChunk string   `json:"source_chunk_id,omitempty"`
}

type Quiz struct {
	Topic     string         `json:"topic"`
	Questions []QuizQuestion `json:"questions"`
}
