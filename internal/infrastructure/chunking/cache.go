package chunking

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
	"github.com/kirillkom/textbook-rag/internal/core/ports"
)

// CachedChunker memoizes chunking results by document id. Concurrent calls
// for the same id share one computation.
type CachedChunker struct {
	next   ports.DocumentChunker
	cache  ports.ChunkCache
	group  singleflight.Group
	logger *slog.Logger
}

func NewCachedChunker(next ports.DocumentChunker, cache ports.ChunkCache, logger *slog.Logger) *CachedChunker {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedChunker{next: next, cache: cache, logger: logger}
}

func (c *CachedChunker) Chunk(
	ctx context.Context,
	storageKey, documentID string,
	hint domain.ContentType,
) (*domain.ChunkedDocument, error) {
	if cached, ok := c.lookup(ctx, documentID); ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(documentID, func() (any, error) {
		if cached, ok := c.lookup(ctx, documentID); ok {
			return cached, nil
		}
		result, err := c.next.Chunk(ctx, storageKey, documentID, hint)
		if err != nil {
			return nil, err
		}
		if err := c.cache.Put(ctx, documentID, result); err != nil {
			c.logger.Warn("chunk_cache_put_failed", "document_id", documentID, "error", err)
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	result, ok := v.(*domain.ChunkedDocument)
	if !ok {
		return nil, fmt.Errorf("chunk cache: unexpected result type %T", v)
	}
	return result, nil
}

func (c *CachedChunker) lookup(ctx context.Context, documentID string) (*domain.ChunkedDocument, bool) {
	cached, ok, err := c.cache.Get(ctx, documentID)
	if err != nil {
		c.logger.Warn("chunk_cache_get_failed", "document_id", documentID, "error", err)
		return nil, false
	}
	return cached, ok
}
