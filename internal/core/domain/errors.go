package domain

import (
	"errors"
	"fmt"
)

var (
	ErrDocumentNotFound       = errors.New("document not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrTemporary              = errors.New("temporary failure")
	ErrUnsupportedContentType = errors.New("unsupported content type")
	ErrRetrievalBackend       = errors.New("retrieval backend failure")
)

// kinds is ordered by precedence for KindOf: a caller mistake wins over a
// backend failure wrapped underneath it.
var kinds = []error{
	ErrInvalidInput,
	ErrUnauthorized,
	ErrDocumentNotFound,
	ErrUnsupportedContentType,
	ErrTemporary,
	ErrRetrievalBackend,
}

// WrapError tags err with kind and the failing operation.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the semantic kind carried by err, or nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
