package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestCollectionKeyPhysicalName(t *testing.T) {
	if got := (CollectionKey{UserID: "alice-01", CollectionID: "c"}).PhysicalName(); got != "user_alice-01" {
		t.Fatalf("expected safe id to be kept, got %q", got)
	}
	got := (CollectionKey{UserID: "a/b c", CollectionID: "c"}).PhysicalName()
	if got != "userx_612f622063" {
		t.Fatalf("expected hex-encoded name, got %q", got)
	}
}

func TestCollectionKeyStringRoundTrip(t *testing.T) {
	keys := []CollectionKey{
		{UserID: "u1", CollectionID: "physics"},
		{UserID: "a/b", CollectionID: "c"},
		{UserID: "a", CollectionID: "b/c"},
		{UserID: "with space", CollectionID: "100%"},
	}
	seen := map[string]CollectionKey{}
	for _, key := range keys {
		raw := key.String()
		if prev, ok := seen[raw]; ok {
			t.Fatalf("keys %+v and %+v collide as %q", prev, key, raw)
		}
		seen[raw] = key

		parsed, err := ParseCollectionKey(raw)
		if err != nil {
			t.Fatalf("ParseCollectionKey(%q) error = %v", raw, err)
		}
		if parsed != key {
			t.Fatalf("round trip of %+v gave %+v", key, parsed)
		}
	}
}

func TestParseCollectionKeyRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "nouser", "/c", "u/", "%zz/c"} {
		if _, err := ParseCollectionKey(raw); !IsKind(err, ErrInvalidInput) {
			t.Fatalf("ParseCollectionKey(%q) expected invalid input, got %v", raw, err)
		}
	}
}

func TestCollectionKeyValidate(t *testing.T) {
	if err := (CollectionKey{UserID: " ", CollectionID: "c"}).Validate(); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank user, got %v", err)
	}
	if err := (CollectionKey{UserID: "u", CollectionID: ""}).Validate(); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank collection, got %v", err)
	}
	if err := (CollectionKey{UserID: "u", CollectionID: "c"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseChunkType(t *testing.T) {
	got, err := ParseChunkType(" example ")
	if err != nil || got != ChunkExample {
		t.Fatalf("expected EXAMPLE, got %q (%v)", got, err)
	}
	if _, err := ParseChunkType("formula"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestParseContentTypeTreatsEmptyAsAuto(t *testing.T) {
	got, err := ParseContentType("")
	if err != nil || got != ContentAuto {
		t.Fatalf("expected AUTO, got %q (%v)", got, err)
	}
	got, err = ParseContentType("book")
	if err != nil || got != ContentBook {
		t.Fatalf("expected BOOK, got %q (%v)", got, err)
	}
	if _, err := ParseContentType("pamphlet"); !IsKind(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestWrapErrorKeepsKindAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(ErrTemporary, "store", cause)
	if !IsKind(err, ErrTemporary) || !errors.Is(err, cause) {
		t.Fatalf("expected both kind and cause to be wrapped: %v", err)
	}
	if !strings.HasPrefix(err.Error(), "store: temporary failure: disk full") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if WrapError(ErrTemporary, "store", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}

func TestKindOfPrefersCallerMistakes(t *testing.T) {
	backend := WrapError(ErrRetrievalBackend, "search", errors.New("qdrant down"))
	err := WrapError(ErrInvalidInput, "search", backend)
	if got := KindOf(err); got != ErrInvalidInput {
		t.Fatalf("KindOf() = %v, want invalid input", got)
	}
	if got := KindOf(backend); got != ErrRetrievalBackend {
		t.Fatalf("KindOf() = %v, want retrieval backend", got)
	}
	if KindOf(errors.New("plain")) != nil || KindOf(nil) != nil {
		t.Fatalf("expected no kind for untyped errors")
	}
}
