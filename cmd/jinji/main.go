package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"

	"github.com/peopleos/jinji/internal/config"
	"github.com/peopleos/jinji/internal/ingest"
	"github.com/peopleos/jinji/internal/llm"
	"github.com/peopleos/jinji/internal/mcp"
	"github.com/peopleos/jinji/internal/pii"
	"github.com/peopleos/jinji/internal/rag"
	"github.com/peopleos/jinji/internal/storage"
	"github.com/peopleos/jinji/internal/telemetry"
	"github.com/peopleos/jinji/internal/tools"
	"github.com/peopleos/jinji/migrations"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("JINJI_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("jinji starting", "version", version)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Connect to database and apply migrations. RunMigrations tracks applied
	// files in schema_migrations and skips duplicates, so errors here indicate
	// real failures (not "already exists").
	db, err := storage.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, migrations.FS); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	// PII redaction. Falls back to pass-through when disabled or unconfigured.
	redactor := pii.NewFromConfig(pii.Config{
		Enabled:       cfg.PIIRedactionEnabled,
		AnalyzerURL:   cfg.PresidioAnalyzerURL,
		AnonymizerURL: cfg.PresidioAnonymizerURL,
		Entities:      cfg.PIIEntities,
	}, logger)

	// Embedding provider: OpenAI when a key is present, noop otherwise.
	var embedder llm.Provider
	if cfg.OpenAIAPIKey != "" {
		logger.Info("embedding provider: openai", "model", cfg.EmbeddingModel, "dimensions", cfg.EmbeddingDimensions)
		embedder = llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	} else {
		logger.Warn("no OPENAI_API_KEY, using noop embeddings (retrieval disabled)")
		embedder = llm.NewNoopProvider(cfg.EmbeddingDimensions)
	}

	// Tool registry and the chat client that dispatches into it.
	registry := tools.New(db, logger)
	chat := llm.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, cfg.Temperature, registry, logger)
	registry.SetSummarizer(func(ctx context.Context, title, content string) (string, error) {
		result, err := chat.ChatCompletion(ctx, []llm.Message{
			{Role: "system", Content: "Summarize the following HR policy document in a few short paragraphs. Keep the key rules and numbers."},
			{Role: "user", Content: fmt.Sprintf("Title: %s\n\n%s", title, content)},
		}, false)
		if err != nil {
			return "", err
		}
		return result.Content, nil
	})

	// Qdrant-backed retrieval (optional — disabled if QDRANT_URL is empty).
	var orchestrator *rag.Orchestrator
	var ingestConsumer *ingest.Consumer
	if cfg.QdrantURL != "" {
		index, err := rag.NewIndex(rag.QdrantConfig{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Dims:       uint64(cfg.EmbeddingDimensions), //nolint:gosec // validated positive in config.Validate
		}, logger)
		if err != nil {
			return fmt.Errorf("qdrant: %w", err)
		}
		defer func() { _ = index.Close() }()

		if err := index.EnsureCollection(ctx); err != nil {
			return fmt.Errorf("qdrant ensure collection: %w", err)
		}
		logger.Info("qdrant: enabled", "collection", cfg.QdrantCollection)

		orchestrator = rag.NewOrchestrator(embedder, index, chat, cfg.RetrievalLimit)

		// Kafka-triggered ingestion pipeline (optional — needs brokers).
		if len(cfg.KafkaBrokers) > 0 {
			svc := ingest.NewService(db, embedder, index, redactor, logger)
			ingestConsumer = ingest.NewConsumer(ingest.ConsumerConfig{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.KafkaIngestTopic,
				GroupID: cfg.KafkaGroupID,
			}, svc, logger)
			ingestConsumer.Start(ctx)
			logger.Info("ingest consumer: enabled", "topic", cfg.KafkaIngestTopic, "group", cfg.KafkaGroupID)
		} else {
			logger.Info("ingest consumer: disabled (no KAFKA_BROKERS)")
		}
	} else {
		logger.Info("qdrant: disabled (no QDRANT_URL), retrieval and ingestion off")
	}

	// MCP server. The registry's tools are exposed as-is; the ask tool is
	// added only when retrieval is configured.
	var answerer mcp.Answerer
	if orchestrator != nil {
		answerer = orchestrator
	}
	mcpSrv := mcp.New(registry, answerer, version, logger)

	g, gctx := errgroup.WithContext(ctx)
	var httpSrv *mcpserver.StreamableHTTPServer
	if cfg.MCPListenAddr != "" {
		httpSrv = mcpserver.NewStreamableHTTPServer(mcpSrv.MCPServer())
		g.Go(func() error {
			logger.Info("mcp: listening", "addr", cfg.MCPListenAddr)
			if err := httpSrv.Start(cfg.MCPListenAddr); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		})
	} else {
		// Listen with the group context so SIGTERM stops the stdio loop
		// instead of waiting for stdin to close.
		stdioSrv := mcpserver.NewStdioServer(mcpSrv.MCPServer())
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil {
				return fmt.Errorf("mcp stdio: %w", err)
			}
			return nil
		})
	}

	// Block until a shutdown signal arrives or a transport fails.
	<-gctx.Done()

	// Graceful shutdown: stop the MCP transport first, then let the consumer
	// finish its in-flight document.
	slog.Info("jinji shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			slog.Error("mcp shutdown error", "error", err)
		}
	}
	if ingestConsumer != nil {
		ingestConsumer.Drain(shutdownCtx)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		return err
	}

	slog.Info("jinji stopped")
	return nil
}
