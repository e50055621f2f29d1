package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/peopleos/jinji/internal/model"
)

const documentColumns = `id, tenant_id, title, ingestion_status, created_at, updated_at`

func scanDocument(row pgx.Row) (model.Document, error) {
	var d model.Document
	err := row.Scan(&d.ID, &d.TenantID, &d.Title, &d.IngestionStatus, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

// CreateDocument inserts a new document in pending state.
func (db *DB) CreateDocument(ctx context.Context, d model.Document) (model.Document, error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.IngestionStatus == "" {
		d.IngestionStatus = model.IngestionPending
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO documents (id, tenant_id, title, ingestion_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		d.ID, d.TenantID, d.Title, d.IngestionStatus, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return model.Document{}, fmt.Errorf("storage: create document: %w", err)
	}
	return d, nil
}

// GetDocument retrieves a document by ID. The ingestion task is invoked
// with a bare document ID, so this lookup is not tenant-scoped; the
// document row itself carries the tenant used for all downstream writes.
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (model.Document, error) {
	d, err := scanDocument(db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Document{}, ErrNotFound
		}
		return model.Document{}, fmt.Errorf("storage: get document: %w", err)
	}
	return d, nil
}

// GetDocumentForTenant retrieves a document by ID within a tenant.
func (db *DB) GetDocumentForTenant(ctx context.Context, tenantID, id uuid.UUID) (model.Document, error) {
	d, err := scanDocument(db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	))
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.Document{}, ErrNotFound
		}
		return model.Document{}, fmt.Errorf("storage: get document for tenant: %w", err)
	}
	return d, nil
}

// UpdateDocumentStatus sets a document's ingestion status.
func (db *DB) UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status model.IngestionStatus) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE documents SET ingestion_status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("storage: update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateDocumentChunk inserts one chunk row.
func (db *DB) CreateDocumentChunk(ctx context.Context, c model.DocumentChunk) (model.DocumentChunk, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO document_chunks (id, document_id, chunk_index, content,
		 content_redacted, embedding_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.DocumentID, c.ChunkIndex, c.Content,
		c.ContentRedacted, c.EmbeddingID, c.CreatedAt,
	)
	if err != nil {
		return model.DocumentChunk{}, fmt.Errorf("storage: create document chunk: %w", err)
	}
	return c, nil
}

// ListDocumentChunks returns a document's chunks ordered by chunk index.
func (db *DB) ListDocumentChunks(ctx context.Context, documentID uuid.UUID) ([]model.DocumentChunk, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, document_id, chunk_index, content, content_redacted, embedding_id, created_at
		 FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list document chunks: %w", err)
	}
	defer rows.Close()

	var out []model.DocumentChunk
	for rows.Next() {
		var c model.DocumentChunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content,
			&c.ContentRedacted, &c.EmbeddingID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan document chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkChunksEmbedded records each chunk's vector-store identity. The
// embedding ID is the chunk's own ID; its presence marks the chunk as
// searchable.
func (db *DB) MarkChunksEmbedded(ctx context.Context, chunkIDs []uuid.UUID) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`UPDATE document_chunks SET embedding_id = id::text WHERE id = ANY($1)`,
		chunkIDs,
	)
	if err != nil {
		return fmt.Errorf("storage: mark chunks embedded: %w", err)
	}
	return nil
}
