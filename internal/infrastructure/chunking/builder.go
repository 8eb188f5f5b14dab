package chunking

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const (
	minChunkRunes = 50

	frontMatterTitle = "Front Matter"
)

var (
	chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("textbook-rag/chunk"))
	topicNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("textbook-rag/topic"))
)

// Builder turns header boundaries into hierarchical chunks. Ids are derived
// from the document id and chunk position, so rebuilding the same document
// yields the same chunks.
type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{logger: logger}
}

func (b *Builder) BuildChunks(
	ctx context.Context,
	documentID string,
	layout *domain.Layout,
	headers []domain.Header,
	strategy domain.ChunkingStrategy,
) ([]domain.HierarchicalChunk, error) {
	return b.build(ctx, documentID, collectLines(layout), headers, strategy)
}

func (b *Builder) build(
	ctx context.Context,
	documentID string,
	lines []docLine,
	headers []domain.Header,
	strategy domain.ChunkingStrategy,
) ([]domain.HierarchicalChunk, error) {
	if isUnstructured(headers) {
		return b.buildWindowed(ctx, documentID, lines, strategy)
	}

	chunks := make([]domain.HierarchicalChunk, 0, len(headers)+1)
	if first := headers[0].Line; first > 0 {
		text := strings.TrimSpace(joinLines(lines[:first]))
		if longEnough(text) {
			topic := domain.TopicMetadata{
				ChapterTitle: frontMatterTitle,
				PageStart:    lines[0].page,
				PageEnd:      headers[0].Page,
			}
			chunks = append(chunks, newChunk(documentID, len(chunks), topic, Classify(""), text))
		}
	}

	skipped := 0
	for i, header := range headers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if header.Line < 0 || header.Line >= len(lines) {
			continue
		}

		end := len(lines)
		pageEnd := header.Page
		if i+1 < len(headers) {
			end = headers[i+1].Line
			pageEnd = headers[i+1].Page
		}
		if end <= header.Line+1 {
			skipped++
			continue
		}

		text := strings.TrimSpace(joinLines(lines[header.Line+1 : end]))
		if !longEnough(text) {
			skipped++
			continue
		}

		topic := domain.TopicMetadata{
			ChapterNum:   header.ChapterNum,
			ChapterTitle: header.ChapterTitle,
			SectionNum:   header.SectionNum,
			SectionTitle: header.SectionTitle,
			PageStart:    header.Page,
			PageEnd:      pageEnd,
		}
		chunks = append(chunks, newChunk(documentID, len(chunks), topic, Classify(header.Text), text))
	}

	if skipped > 0 {
		b.logger.Debug("chunk_spans_skipped",
			"document_id", documentID,
			"skipped", skipped,
			"min_chars", minChunkRunes,
		)
	}
	return chunks, nil
}

// buildWindowed chunks a document that has only the synthetic header.
func (b *Builder) buildWindowed(
	ctx context.Context,
	documentID string,
	lines []docLine,
	strategy domain.ChunkingStrategy,
) ([]domain.HierarchicalChunk, error) {
	splitter := NewSplitter(strategy.ChunkSize, strategy.ChunkOverlap)
	pieces := splitter.Split(joinLines(lines))

	chunks := make([]domain.HierarchicalChunk, 0, len(pieces))
	for i, piece := range pieces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !longEnough(piece) {
			continue
		}
		topic := domain.TopicMetadata{
			ChapterTitle: DefaultHeaderTitle,
			SectionTitle: fmt.Sprintf("Part %d", i+1),
		}
		chunks = append(chunks, newChunk(documentID, len(chunks), topic, domain.ChunkConcept, piece))
	}
	return chunks, nil
}

func newChunk(documentID string, index int, topic domain.TopicMetadata, chunkType domain.ChunkType, text string) domain.HierarchicalChunk {
	equations := extractEquations(text)
	return domain.HierarchicalChunk{
		ChunkID:    uuid.NewSHA1(chunkNamespace, []byte(documentID+":"+strconv.Itoa(index))).String(),
		DocumentID: documentID,
		ChunkIndex: index,
		Topic:      topic,
		Metadata: domain.ChunkMetadata{
			ChunkType:    chunkType,
			TopicID:      topicID(documentID, index, topic),
			KeyTerms:     extractKeyTerms(text),
			Equations:    equations,
			HasEquations: len(equations) > 0,
			HasDiagrams:  hasDiagramReference(text),
		},
		Text: text,
	}
}

func topicID(documentID string, index int, topic domain.TopicMetadata) string {
	name := strings.Join([]string{
		documentID,
		strconv.Itoa(index),
		topic.ChapterTitle,
		topic.SectionNum,
		topic.SectionTitle,
	}, "\x00")
	return uuid.NewSHA1(topicNamespace, []byte(name)).String()
}

func isUnstructured(headers []domain.Header) bool {
	if len(headers) == 0 {
		return true
	}
	for _, h := range headers {
		if !h.Synthetic {
			return false
		}
	}
	return true
}

func longEnough(text string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= minChunkRunes
}
