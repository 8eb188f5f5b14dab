package memory

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const defaultSize = 256

// ChunkCache is a process-local LRU of chunking results.
type ChunkCache struct {
	items *lru.Cache[string, *domain.ChunkedDocument]
}

func New(size int) (*ChunkCache, error) {
	if size <= 0 {
		size = defaultSize
	}
	items, err := lru.New[string, *domain.ChunkedDocument](size)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &ChunkCache{items: items}, nil
}

func (c *ChunkCache) Get(_ context.Context, documentID string) (*domain.ChunkedDocument, bool, error) {
	doc, ok := c.items.Get(documentID)
	return doc, ok, nil
}

func (c *ChunkCache) Put(_ context.Context, documentID string, doc *domain.ChunkedDocument) error {
	c.items.Add(documentID, doc)
	return nil
}

func (c *ChunkCache) Delete(_ context.Context, documentID string) error {
	c.items.Remove(documentID)
	return nil
}

func (c *ChunkCache) Len() int {
	return c.items.Len()
}
