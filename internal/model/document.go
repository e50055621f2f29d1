package model

import (
	"time"

	"github.com/google/uuid"
)

// IngestionStatus represents the lifecycle state of a document's
// embedding pipeline.
type IngestionStatus string

const (
	IngestionPending   IngestionStatus = "pending"
	IngestionCompleted IngestionStatus = "completed"
	IngestionFailed    IngestionStatus = "failed"
)

// Document is a source document whose chunks are embedded for retrieval.
// Splitting into chunks happens upstream; this service only embeds.
type Document struct {
	ID              uuid.UUID       `json:"id"`
	TenantID        uuid.UUID       `json:"tenant_id"`
	Title           string          `json:"title"`
	IngestionStatus IngestionStatus `json:"ingestion_status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// DocumentChunk is an ordered slice of a document's text, the unit of
// embedding and retrieval.
//
// ContentRedacted, when present, is preferred over Content for embedding.
// EmbeddingID is set only after the chunk has been written to the vector
// store; it is the durable marker that the chunk is searchable.
type DocumentChunk struct {
	ID              uuid.UUID `json:"id"`
	DocumentID      uuid.UUID `json:"document_id"`
	ChunkIndex      int       `json:"chunk_index"`
	Content         string    `json:"content"`
	ContentRedacted *string   `json:"content_redacted,omitempty"`
	EmbeddingID     *string   `json:"embedding_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// EmbeddingText returns the text that should be embedded for this chunk:
// the redacted variant when available, the raw content otherwise.
func (c DocumentChunk) EmbeddingText() string {
	if c.ContentRedacted != nil && *c.ContentRedacted != "" {
		return *c.ContentRedacted
	}
	return c.Content
}
