package httpadapter

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirillkom/textbook-rag/internal/config"
	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func multipartUpload(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(config.Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	deps := newTestDeps()
	handler := deps.handler(config.Config{})

	body, contentType := multipartUpload(t, "notes.txt", []byte("hello"), map[string]string{"content_type": "chapter"})
	req := httptest.NewRequest(http.MethodPost, "/v1/collections/physics/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(userIDHeader, testUser)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var doc domain.Document
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.ID != "doc-1" || doc.Status != domain.StatusUploaded {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if deps.ingest.gotKey != (domain.CollectionKey{UserID: testUser, CollectionID: "physics"}) {
		t.Fatalf("unexpected collection key: %+v", deps.ingest.gotKey)
	}
	if deps.ingest.gotHint != domain.ContentChapter {
		t.Fatalf("expected uppercased CHAPTER hint, got %q", deps.ingest.gotHint)
	}
	if string(deps.ingest.gotBody) != "hello" {
		t.Fatalf("unexpected body %q", deps.ingest.gotBody)
	}
}

func TestUploadDocumentRequiresUserHeader(t *testing.T) {
	handler := newTestHandler(config.Config{})

	body, contentType := multipartUpload(t, "notes.txt", []byte("hello"), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/collections/physics/documents", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentRequiresFileField(t *testing.T) {
	handler := newTestHandler(config.Config{})

	body, contentType := multipartUpload(t, "", nil, map[string]string{"content_type": "BOOK"})
	req := httptest.NewRequest(http.MethodPost, "/v1/collections/physics/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(userIDHeader, testUser)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentRejectsOversizedBody(t *testing.T) {
	handler := newTestHandler(config.Config{MaxUploadBytes: 64})

	body, contentType := multipartUpload(t, "big.txt", bytes.Repeat([]byte("x"), 4096), nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/collections/physics/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(userIDHeader, testUser)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestGetDocumentHidesForeignCollection(t *testing.T) {
	deps := newTestDeps()
	deps.documents.doc = &domain.Document{ID: "doc-1", UserID: testUser, CollectionID: "chemistry"}
	handler := deps.handler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/collections/physics/documents/doc-1", nil)
	req.Header.Set(userIDHeader, testUser)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign collection, got %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/collections/chemistry/documents/doc-1", nil)
	req.Header.Set(userIDHeader, testUser)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for own collection, got %d", res.Code)
	}
}

func TestListDocumentsReturnsEmptyArray(t *testing.T) {
	handler := newTestHandler(config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/v1/collections/physics/documents", nil)
	req.Header.Set(userIDHeader, testUser)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Documents []domain.Document `json:"documents"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Documents == nil || len(resp.Documents) != 0 {
		t.Fatalf("expected empty documents array, got %#v", resp.Documents)
	}
}

func TestDeleteDocumentReturns204(t *testing.T) {
	deps := newTestDeps()
	handler := deps.handler(config.Config{})

	req := httptest.NewRequest(http.MethodDelete, "/v1/collections/physics/documents/doc-9", nil)
	req.Header.Set(userIDHeader, testUser)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(deps.documents.deleted) != 1 || deps.documents.deleted[0] != "doc-9" {
		t.Fatalf("unexpected deletions: %v", deps.documents.deleted)
	}
	if deps.documents.deleteKey.CollectionID != "physics" {
		t.Fatalf("unexpected delete key: %+v", deps.documents.deleteKey)
	}
}
