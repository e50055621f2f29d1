package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// ingestEvent is the message published when a document is ready to embed.
type ingestEvent struct {
	DocumentID string `json:"document_id"`
}

// ConsumerConfig configures the Kafka consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Consumer reads document-ingestion events from Kafka and runs the
// pipeline for each. Offsets are committed only after the pipeline
// returns, so a crash mid-document redelivers the event; the pipeline's
// completed short-circuit makes redelivery harmless.
type Consumer struct {
	reader  *kafka.Reader
	service *Service
	logger  *slog.Logger

	started    atomic.Bool
	cancelLoop context.CancelFunc
	done       chan struct{}
	once       sync.Once
}

// NewConsumer creates a consumer for the ingestion topic.
func NewConsumer(cfg ConsumerConfig, service *Service, logger *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        cfg.Brokers,
			Topic:          cfg.Topic,
			GroupID:        cfg.GroupID,
			MinBytes:       1,
			MaxBytes:       1 << 20,
			CommitInterval: 0, // explicit commits only
		}),
		service: service,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Start begins the background consume loop. It is safe to call only once;
// subsequent calls are no-ops and log a warning.
func (c *Consumer) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		c.logger.Warn("ingest consumer: Start called more than once, ignoring")
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancelLoop = cancel
	go c.consumeLoop(loopCtx)
}

// Drain stops the consume loop and blocks until the in-flight message is
// finished or the context expires, then closes the reader.
func (c *Consumer) Drain(ctx context.Context) {
	if c.cancelLoop != nil {
		c.cancelLoop()
	}
	select {
	case <-c.done:
	case <-ctx.Done():
		c.logger.Warn("ingest consumer: drain timed out")
	}
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("ingest consumer: close reader", "error", err)
	}
}

func (c *Consumer) consumeLoop(ctx context.Context) {
	defer c.once.Do(func() { close(c.done) })

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("ingest consumer: fetch message", "error", err)
			continue
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("ingest consumer: commit offset", "error", err)
		}
	}
}

// handle processes one event. Malformed events are logged and committed
// past; redelivering them would fail the same way forever.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var event ingestEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("ingest consumer: malformed event", "error", err, "offset", msg.Offset)
		return
	}

	documentID, err := uuid.Parse(event.DocumentID)
	if err != nil {
		c.logger.Error("ingest consumer: invalid document_id", "document_id", event.DocumentID, "offset", msg.Offset)
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := c.service.IngestDocument(runCtx, documentID)
	if err != nil {
		c.logger.Error("ingest consumer: ingestion failed", "document_id", documentID, "error", err)
		return
	}
	c.logger.Info("ingest consumer: processed event",
		"document_id", documentID, "status", result.Status, "chunks_ingested", result.ChunksIngested)
}
