// Package ingest runs the document embedding pipeline: load a document's
// chunks, redact them, embed them, write the vectors to the search index,
// and advance the document's ingestion status.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/peopleos/jinji/internal/llm"
	"github.com/peopleos/jinji/internal/model"
	"github.com/peopleos/jinji/internal/pii"
	"github.com/peopleos/jinji/internal/rag"
	"github.com/peopleos/jinji/internal/storage"
	"github.com/peopleos/jinji/internal/telemetry"
)

// Indexer is the vector-store surface the pipeline writes to.
type Indexer interface {
	UpsertChunks(ctx context.Context, points []rag.Point) error
}

// Store is the document storage surface the pipeline reads and advances.
// *storage.DB satisfies it.
type Store interface {
	GetDocument(ctx context.Context, id uuid.UUID) (model.Document, error)
	ListDocumentChunks(ctx context.Context, documentID uuid.UUID) ([]model.DocumentChunk, error)
	MarkChunksEmbedded(ctx context.Context, chunkIDs []uuid.UUID) error
	UpdateDocumentStatus(ctx context.Context, id uuid.UUID, status model.IngestionStatus) error
}

// Result reports the outcome of one ingestion run.
type Result struct {
	DocumentID     uuid.UUID `json:"document_id"`
	Status         string    `json:"status"`
	ChunksIngested int       `json:"chunks_ingested"`
	Message        string    `json:"message,omitempty"`
}

// Service executes the ingestion pipeline for one document at a time.
type Service struct {
	db       Store
	embedder llm.Provider
	index    Indexer
	redactor pii.Detector
	logger   *slog.Logger

	ingestedCounter metric.Int64Counter
	failedCounter   metric.Int64Counter
}

// NewService creates the pipeline. redactor may be a no-op detector; it is
// only consulted for chunks that have no stored redacted variant.
func NewService(db Store, embedder llm.Provider, index Indexer, redactor pii.Detector, logger *slog.Logger) *Service {
	s := &Service{
		db:       db,
		embedder: embedder,
		index:    index,
		redactor: redactor,
		logger:   logger,
	}

	meter := telemetry.Meter("jinji/ingest")
	s.ingestedCounter, _ = meter.Int64Counter("jinji.ingest.documents_completed",
		metric.WithDescription("Documents whose ingestion completed"))
	s.failedCounter, _ = meter.Int64Counter("jinji.ingest.documents_failed",
		metric.WithDescription("Documents whose ingestion failed"))

	return s
}

// IngestDocument runs the full pipeline for one document.
//
// The status machine: a missing document is an error and writes nothing; an
// already-completed document short-circuits without re-embedding; a document
// with no chunks is marked failed. A chunk whose embedding call fails is
// skipped, and the document still completes as long as at least one chunk
// survives. Only a run with zero surviving chunks marks the document failed.
func (s *Service) IngestDocument(ctx context.Context, documentID uuid.UUID) (Result, error) {
	doc, err := s.db.GetDocument(ctx, documentID)
	if err != nil {
		if err == storage.ErrNotFound {
			return Result{}, fmt.Errorf("ingest: document %s not found", documentID)
		}
		return Result{}, fmt.Errorf("ingest: load document: %w", err)
	}

	if doc.IngestionStatus == model.IngestionCompleted {
		s.logger.Info("document already ingested", "document_id", doc.ID)
		return Result{
			DocumentID: doc.ID,
			Status:     string(model.IngestionCompleted),
			Message:    "document already ingested",
		}, nil
	}

	chunks, err := s.db.ListDocumentChunks(ctx, doc.ID)
	if err != nil {
		res, _ := s.fail(ctx, doc, "loading chunks failed")
		return res, fmt.Errorf("ingest: list chunks: %w", err)
	}
	if len(chunks) == 0 {
		return s.fail(ctx, doc, "document has no chunks")
	}

	points := make([]rag.Point, 0, len(chunks))
	embedded := make([]uuid.UUID, 0, len(chunks))
	for _, c := range chunks {
		text := c.EmbeddingText()
		if c.ContentRedacted == nil {
			text = s.redactor.Redact(ctx, text)
		}

		vec, err := s.embedder.Embed(ctx, text)
		if err != nil {
			s.logger.Warn("chunk embedding failed, skipping",
				"document_id", doc.ID, "chunk_id", c.ID, "chunk_index", c.ChunkIndex, "error", err)
			continue
		}

		points = append(points, rag.Point{
			ID:         c.ID,
			TenantID:   doc.TenantID,
			DocumentID: doc.ID,
			ChunkIndex: c.ChunkIndex,
			Content:    text,
			Embedding:  vec.Slice(),
		})
		embedded = append(embedded, c.ID)
	}

	if len(points) == 0 {
		return s.fail(ctx, doc, "all chunk embeddings failed")
	}

	if err := s.index.UpsertChunks(ctx, points); err != nil {
		s.logger.Error("vector upsert failed", "document_id", doc.ID, "error", err)
		res, _ := s.fail(ctx, doc, "vector store write failed")
		return res, fmt.Errorf("ingest: upsert chunks: %w", err)
	}

	if err := s.db.MarkChunksEmbedded(ctx, embedded); err != nil {
		res, _ := s.fail(ctx, doc, "recording embedded chunks failed")
		return res, fmt.Errorf("ingest: mark chunks embedded: %w", err)
	}
	if err := s.db.UpdateDocumentStatus(ctx, doc.ID, model.IngestionCompleted); err != nil {
		return Result{}, fmt.Errorf("ingest: mark completed: %w", err)
	}

	s.ingestedCounter.Add(ctx, 1)
	s.logger.Info("document ingested",
		"document_id", doc.ID, "tenant_id", doc.TenantID,
		"chunks_total", len(chunks), "chunks_ingested", len(points))

	return Result{
		DocumentID:     doc.ID,
		Status:         string(model.IngestionCompleted),
		ChunksIngested: len(points),
	}, nil
}

func (s *Service) fail(ctx context.Context, doc model.Document, msg string) (Result, error) {
	if err := s.db.UpdateDocumentStatus(ctx, doc.ID, model.IngestionFailed); err != nil {
		return Result{}, fmt.Errorf("ingest: mark failed: %w", err)
	}
	s.failedCounter.Add(ctx, 1)
	s.logger.Warn("document ingestion failed", "document_id", doc.ID, "reason", msg)
	return Result{
		DocumentID: doc.ID,
		Status:     string(model.IngestionFailed),
		Message:    msg,
	}, nil
}
