package httpadapter

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	key, err := collectionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if rt.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, err)
			return
		}
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("multipart form is required")))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("multipart field 'file' is required")))
		return
	}
	defer file.Close()

	hint := domain.ContentType(strings.ToUpper(strings.TrimSpace(r.FormValue("content_type"))))
	doc, err := rt.services.Ingest.Upload(
		r.Context(),
		key,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		hint,
		file,
	)
	if err != nil {
		rt.fail(w, r, "upload_document", err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	key, err := collectionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	docs, err := rt.services.Documents.ListByCollection(r.Context(), key)
	if err != nil {
		rt.fail(w, r, "list_documents", err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// getDocument hides documents of other collections behind 404.
func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	key, err := collectionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))
	doc, err := rt.services.Documents.GetByID(r.Context(), id)
	if err != nil {
		rt.fail(w, r, "get_document", err)
		return
	}
	if doc.Collection() != key {
		writeError(w, domain.WrapError(domain.ErrDocumentNotFound, "get document", errors.New("id="+id)))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	key, err := collectionKey(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := rt.services.Documents.Delete(r.Context(), key, strings.TrimSpace(r.PathValue("id"))); err != nil {
		rt.fail(w, r, "delete_document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
