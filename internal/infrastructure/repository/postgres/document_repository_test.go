package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

var documentRowColumns = []string{
	"id", "user_id", "collection_id", "filename", "mime_type", "storage_path", "content_hint",
	"content_type", "chunk_count", "metadata", "status", "error_message", "created_at", "updated_at",
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(schemaLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS documents").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateDefaultsHintToAuto(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-1", "u1", "physics", "a.pdf", "application/pdf", "doc-1_a.pdf",
			"AUTO", nil, 0, sqlmock.AnyArg(), "uploaded", nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &domain.Document{
		ID: "doc-1", UserID: "u1", CollectionID: "physics", Filename: "a.pdf",
		MimeType: "application/pdf", StoragePath: "doc-1_a.pdf", Status: domain.StatusUploaded,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, user_id, collection_id, filename").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByIDDecodesMetadata(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).AddRow(
		"doc-1", "u1", "physics", "book.pdf", "application/pdf", "doc-1_book.pdf", "AUTO",
		"BOOK", 42, []byte(`{"title":"Fundamentals of Physics","isbn":"9781118230725"}`), "ready", nil, now, now,
	)
	mock.ExpectQuery("SELECT id, user_id, collection_id").WithArgs("doc-1").WillReturnRows(rows)

	doc, err := repo.GetByID(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.ContentType != domain.ContentBook || doc.ChunkCount != 42 || doc.Status != domain.StatusReady {
		t.Fatalf("unexpected document %+v", doc)
	}
	if doc.Metadata.Title != "Fundamentals of Physics" || doc.Metadata.ISBN != "9781118230725" {
		t.Fatalf("unexpected metadata %+v", doc.Metadata)
	}
	if doc.Collection() != (domain.CollectionKey{UserID: "u1", CollectionID: "physics"}) {
		t.Fatalf("unexpected collection %+v", doc.Collection())
	}
}

func TestListByCollectionScopesQuery(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("doc-2", "u1", "physics", "b.txt", "text/plain", "doc-2_b.txt", "AUTO", nil, 0, []byte(`{}`), "uploaded", nil, now, now).
		AddRow("doc-1", "u1", "physics", "a.txt", "text/plain", "doc-1_a.txt", "CHAPTER", "CHAPTER", 3, []byte(`{}`), "ready", nil, now, now)
	mock.ExpectQuery("FROM documents").WithArgs("u1", "physics").WillReturnRows(rows)

	docs, err := repo.ListByCollection(context.Background(), domain.CollectionKey{UserID: "u1", CollectionID: "physics"})
	if err != nil {
		t.Fatalf("ListByCollection() error = %v", err)
	}
	if len(docs) != 2 || docs[0].ID != "doc-2" || docs[0].ContentType != "" || docs[1].ContentHint != domain.ContentChapter {
		t.Fatalf("unexpected documents %+v", docs)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusProcessing), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", domain.StatusProcessing, "")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSaveChunkingResultReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", "BOOK", 12, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SaveChunkingResult(context.Background(), "missing", domain.ContentBook, 12, domain.SourceMetadata{Title: "T"})
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteRemovesRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM documents").
		WithArgs("doc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
