package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type errorClass struct {
	status int
	code   string
}

var errorClasses = map[error]errorClass{
	domain.ErrInvalidInput:           {http.StatusBadRequest, "invalid_input"},
	domain.ErrUnauthorized:           {http.StatusUnauthorized, "unauthorized"},
	domain.ErrDocumentNotFound:       {http.StatusNotFound, "not_found"},
	domain.ErrUnsupportedContentType: {http.StatusUnsupportedMediaType, "unsupported_content_type"},
	domain.ErrTemporary:              {http.StatusServiceUnavailable, "unavailable"},
	domain.ErrRetrievalBackend:       {http.StatusServiceUnavailable, "unavailable"},
}

func classifyError(err error) errorClass {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return errorClass{http.StatusRequestEntityTooLarge, "payload_too_large"}
	}
	if class, ok := errorClasses[domain.KindOf(err)]; ok {
		return class
	}
	return errorClass{http.StatusInternalServerError, "internal"}
}

func mapErrorToHTTPStatus(err error) int {
	return classifyError(err).status
}
