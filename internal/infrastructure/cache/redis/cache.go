package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

const defaultKeyPrefix = "textbook-rag:chunks:"

// commander is the subset of the redis client used by the cache.
type commander interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

type Options struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// ChunkCache shares chunking results between api and worker processes.
type ChunkCache struct {
	client commander
	closer io.Closer
	ttl    time.Duration
	prefix string
}

func New(opts Options) *ChunkCache {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	c := newWithClient(client, opts)
	c.closer = client
	return c
}

func newWithClient(client commander, opts Options) *ChunkCache {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &ChunkCache{client: client, ttl: opts.TTL, prefix: prefix}
}

func (c *ChunkCache) Get(ctx context.Context, documentID string) (*domain.ChunkedDocument, bool, error) {
	raw, err := c.client.Get(ctx, c.key(documentID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, domain.WrapError(domain.ErrTemporary, "redis get chunks", err)
	}
	var doc domain.ChunkedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, false, fmt.Errorf("decode cached chunks: %w", err)
	}
	return &doc, true, nil
}

func (c *ChunkCache) Put(ctx context.Context, documentID string, doc *domain.ChunkedDocument) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode chunks: %w", err)
	}
	if err := c.client.Set(ctx, c.key(documentID), raw, c.ttl).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "redis set chunks", err)
	}
	return nil
}

func (c *ChunkCache) Delete(ctx context.Context, documentID string) error {
	if err := c.client.Del(ctx, c.key(documentID)).Err(); err != nil {
		return domain.WrapError(domain.ErrTemporary, "redis delete chunks", err)
	}
	return nil
}

func (c *ChunkCache) key(documentID string) string {
	return c.prefix + documentID
}

func (c *ChunkCache) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
