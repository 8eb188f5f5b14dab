package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type commanderFake struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newCommanderFake() *commanderFake {
	return &commanderFake{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *commanderFake) Get(_ context.Context, key string) *goredis.StringCmd {
	if f.err != nil {
		return goredis.NewStringResult("", f.err)
	}
	v, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *commanderFake) Set(_ context.Context, key string, value interface{}, ttl time.Duration) *goredis.StatusCmd {
	if f.err != nil {
		return goredis.NewStatusResult("", f.err)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func (f *commanderFake) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	if f.err != nil {
		return goredis.NewIntResult(0, f.err)
	}
	for _, k := range keys {
		delete(f.values, k)
	}
	return goredis.NewIntResult(int64(len(keys)), nil)
}

func TestChunkCacheRoundTrip(t *testing.T) {
	fake := newCommanderFake()
	cache := newWithClient(fake, Options{TTL: time.Hour})
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "doc-1"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	doc := &domain.ChunkedDocument{
		DocumentID:  "doc-1",
		ContentType: domain.ContentChapter,
		Chunks:      []domain.HierarchicalChunk{{ChunkID: "c-1", DocumentID: "doc-1", Text: "Force equals mass times acceleration."}},
	}
	if err := cache.Put(ctx, "doc-1", doc); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if fake.ttls[defaultKeyPrefix+"doc-1"] != time.Hour {
		t.Fatalf("expected ttl to be applied, got %v", fake.ttls)
	}

	got, ok, err := cache.Get(ctx, "doc-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got.ContentType != domain.ContentChapter || len(got.Chunks) != 1 || got.Chunks[0].ChunkID != "c-1" {
		t.Fatalf("unexpected cached document %+v", got)
	}

	if err := cache.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "doc-1"); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestChunkCacheWrapsBackendErrorsAsTemporary(t *testing.T) {
	fake := newCommanderFake()
	fake.err = errors.New("connection refused")
	cache := newWithClient(fake, Options{})

	if _, _, err := cache.Get(context.Background(), "doc-1"); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if err := cache.Put(context.Background(), "doc-1", &domain.ChunkedDocument{}); !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}
