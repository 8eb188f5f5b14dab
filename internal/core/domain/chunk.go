package domain

import (
	"fmt"
	"strings"
)

// ChunkType is the semantic category of a chunk.
type ChunkType string

const (
	ChunkConcept  ChunkType = "CONCEPT"
	ChunkExample  ChunkType = "EXAMPLE"
	ChunkQuestion ChunkType = "QUESTION"
	ChunkOther    ChunkType = "OTHER"
)

func ParseChunkType(raw string) (ChunkType, error) {
	switch ChunkType(strings.ToUpper(strings.TrimSpace(raw))) {
	case ChunkConcept:
		return ChunkConcept, nil
	case ChunkExample:
		return ChunkExample, nil
	case ChunkQuestion:
		return ChunkQuestion, nil
	case ChunkOther:
		return ChunkOther, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse chunk type", fmt.Errorf("unknown chunk type %q", raw))
	}
}

// ContentType is the document-level granularity that drives the chunk size.
type ContentType string

const (
	ContentAuto     ContentType = "AUTO"
	ContentBook     ContentType = "BOOK"
	ContentChapter  ContentType = "CHAPTER"
	ContentDocument ContentType = "DOCUMENT"
)

// ParseContentType accepts an empty value as AUTO.
func ParseContentType(raw string) (ContentType, error) {
	switch ContentType(strings.ToUpper(strings.TrimSpace(raw))) {
	case "", ContentAuto:
		return ContentAuto, nil
	case ContentBook:
		return ContentBook, nil
	case ContentChapter:
		return ContentChapter, nil
	case ContentDocument:
		return ContentDocument, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse content type", fmt.Errorf("unknown content type %q", raw))
	}
}

type HeaderLevel string

const (
	HeaderChapter HeaderLevel = "chapter"
	HeaderSection HeaderLevel = "section"
)

// Header is a detected chapter or section boundary. Line is the ordinal of
// the header's text line across the whole document, -1 for the synthetic
// default header.
type Header struct {
	Level        HeaderLevel `json:"level"`
	ChapterNum   *int        `json:"chapter_num,omitempty"`
	ChapterTitle string      `json:"chapter_title,omitempty"`
	SectionNum   string      `json:"section_num,omitempty"`
	SectionTitle string      `json:"section_title,omitempty"`
	Page         int         `json:"page"`
	YPosition    float64     `json:"y_position"`
	Text         string      `json:"text"`
	FontSize     float64     `json:"font_size"`
	Line         int         `json:"-"`
	Synthetic    bool        `json:"-"`
}

type TopicMetadata struct {
	ChapterNum   *int   `json:"chapter_num,omitempty"`
	ChapterTitle string `json:"chapter_title,omitempty"`
	SectionNum   string `json:"section_num,omitempty"`
	SectionTitle string `json:"section_title,omitempty"`
	PageStart    int    `json:"page_start,omitempty"`
	PageEnd      int    `json:"page_end,omitempty"`
}

type ChunkMetadata struct {
	ChunkType       ChunkType `json:"chunk_type"`
	TopicID         string    `json:"topic_id"`
	KeyTerms        []string  `json:"key_terms"`
	Equations       []string  `json:"equations"`
	HasEquations    bool      `json:"has_equations"`
	HasDiagrams     bool      `json:"has_diagrams"`
	DifficultyLevel string    `json:"difficulty_level,omitempty"`
}

type HierarchicalChunk struct {
	ChunkID         string        `json:"chunk_id"`
	DocumentID      string        `json:"document_id"`
	ChunkIndex      int           `json:"chunk_index"`
	Topic           TopicMetadata `json:"topic_metadata"`
	Metadata        ChunkMetadata `json:"chunk_metadata"`
	Text            string        `json:"text"`
	EmbeddingVector []float32     `json:"embedding_vector,omitempty"`
}

// ChunkingStrategy is a fixed preset selected per document.
type ChunkingStrategy struct {
	ChunkSize    int         `json:"chunk_size"`
	ChunkOverlap int         `json:"chunk_overlap"`
	ContentType  ContentType `json:"content_type"`
	Description  string      `json:"description"`
}

// ChunkedDocument is the full result of chunking one source file.
type ChunkedDocument struct {
	DocumentID  string              `json:"document_id"`
	ContentType ContentType         `json:"content_type"`
	Strategy    ChunkingStrategy    `json:"strategy"`
	Metadata    SourceMetadata      `json:"metadata"`
	Chunks      []HierarchicalChunk `json:"chunks"`
}
