package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/textbook-rag/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, r.db)
}

const documentColumns = `id, user_id, collection_id, filename, mime_type, storage_path, content_hint, content_type, chunk_count, metadata, status, error_message, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	hint := doc.ContentHint
	if hint == "" {
		hint = domain.ContentAuto
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`,
		doc.ID, doc.UserID, doc.CollectionID, doc.Filename, doc.MimeType, doc.StoragePath,
		string(hint), nullableString(string(doc.ContentType)), doc.ChunkCount, metaJSON,
		string(doc.Status), nullableString(doc.Error), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) ListByCollection(ctx context.Context, key domain.CollectionKey) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE user_id = $1 AND collection_id = $2
ORDER BY created_at DESC
`, key.UserID, key.CollectionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireAffected(res, "update document status", id)
}

func (r *DocumentRepository) SaveChunkingResult(
	ctx context.Context,
	id string,
	contentType domain.ContentType,
	chunkCount int,
	meta domain.SourceMetadata,
) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET content_type = $2, chunk_count = $3, metadata = $4, updated_at = $5
WHERE id = $1
`, id, string(contentType), chunkCount, metaJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save chunking result: %w", err)
	}
	return requireAffected(res, "save chunking result", id)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireAffected(res, "delete document", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var (
		doc         domain.Document
		hint        string
		contentType sql.NullString
		metaRaw     []byte
		status      string
		errMessage  sql.NullString
	)
	err := row.Scan(
		&doc.ID, &doc.UserID, &doc.CollectionID, &doc.Filename, &doc.MimeType, &doc.StoragePath,
		&hint, &contentType, &doc.ChunkCount, &metaRaw, &status, &errMessage, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return doc, err
		}
		return doc, fmt.Errorf("scan document: %w", err)
	}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &doc.Metadata); err != nil {
			return doc, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	doc.ContentHint = domain.ContentType(hint)
	doc.ContentType = domain.ContentType(contentType.String)
	doc.Status = domain.DocumentStatus(status)
	doc.Error = errMessage.String
	return doc, nil
}

func requireAffected(res sql.Result, operation, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if n == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id %s", id))
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
