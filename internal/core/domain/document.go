package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	CollectionID string         `json:"collection_id"`
	Filename     string         `json:"filename"`
	MimeType     string         `json:"mime_type"`
	StoragePath  string         `json:"storage_path"`
	ContentHint  ContentType    `json:"content_hint,omitempty"`
	ContentType  ContentType    `json:"content_type,omitempty"`
	ChunkCount   int            `json:"chunk_count"`
	Metadata     SourceMetadata `json:"metadata"`
	Status       DocumentStatus `json:"status"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (d *Document) Collection() CollectionKey {
	return CollectionKey{UserID: d.UserID, CollectionID: d.CollectionID}
}

// SourceMetadata is the document-level metadata scraped by the chunking
// strategy. Which fields are set depends on the content type.
type SourceMetadata struct {
	Title         string   `json:"title,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Edition       string   `json:"edition,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	TotalChapters int      `json:"total_chapters,omitempty"`
	ChapterNum    *int     `json:"chapter_num,omitempty"`
	ChapterTitle  string   `json:"chapter_title,omitempty"`
	TotalPages    int      `json:"total_pages,omitempty"`
	PDFTitle      string   `json:"pdf_title,omitempty"`
	PDFAuthor     string   `json:"pdf_author,omitempty"`
}
