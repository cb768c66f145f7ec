package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sebc-dev/alexandria/internal/config"
	"github.com/sebc-dev/alexandria/internal/embedder"
	"github.com/sebc-dev/alexandria/internal/evaluation"
	"github.com/sebc-dev/alexandria/internal/rerank"
	"github.com/sebc-dev/alexandria/internal/retrieval"
	"github.com/sebc-dev/alexandria/internal/search"
	"github.com/sebc-dev/alexandria/internal/server"
)

func main() {
	// Set up structured logging
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("failed to run server", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("starting search service",
		"http_port", cfg.HTTPPort,
		"environment", cfg.Environment,
		"fusion_alpha", cfg.FusionAlpha,
	)

	// Keyword search over PostgreSQL full text index
	keywords, err := retrieval.NewPostgresKeywordSearcher(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer keywords.Close()
	slog.Info("connected to PostgreSQL")

	// Dense search over Qdrant
	vectors, err := retrieval.NewQdrantRetriever(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectors.Close()
	slog.Info("connected to Qdrant", "collection", cfg.QdrantCollection)

	retriever := retrieval.NewHybridRetriever(vectors, keywords)

	// Initialize Ollama embedder
	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})
	slog.Info("initialized Ollama embedder", "model", cfg.OllamaEmbeddingModel)

	// Cross-encoder reranker
	scorer := rerank.NewHTTPCrossEncoder(rerank.HTTPCrossEncoderConfig{
		BaseURL: cfg.RerankerURL,
	})
	reranker := rerank.New(scorer)
	slog.Info("initialized cross-encoder reranker", "url", cfg.RerankerURL)

	svc := search.NewService(embed, retriever, reranker,
		search.WithFusionAlpha(cfg.FusionAlpha),
		search.WithLogger(slog.Default()),
	)

	// Evaluation wiring: golden set from disk, CSV reports to disk
	runner, err := evaluation.NewRunner(
		svc,
		evaluation.NewFileGoldenSource(cfg.EvalGoldenSetPath),
		evaluation.NewCSVExporter(cfg.EvalOutputDir),
		evaluation.WithThresholds(evaluation.Thresholds{
			RecallAt10: cfg.EvalRecallThreshold,
			MRR:        cfg.EvalMRRThreshold,
		}),
		evaluation.WithConcurrency(cfg.EvalConcurrency),
		evaluation.WithRunnerLogger(slog.Default()),
	)
	if err != nil {
		return fmt.Errorf("failed to create evaluation runner: %w", err)
	}

	httpServer := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           cfg.HTTPPort,
		APIKey:         cfg.APIKey,
		Logger:         slog.Default(),
		AllowedOrigins: []string{"*"}, // Configure in production
	}, svc, runner)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "port", cfg.HTTPPort)
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}

// Ensure interfaces are satisfied at compile time
var (
	_ retrieval.Retriever       = (*retrieval.HybridRetriever)(nil)
	_ retrieval.VectorSearcher  = (*retrieval.QdrantRetriever)(nil)
	_ retrieval.KeywordSearcher = (*retrieval.PostgresKeywordSearcher)(nil)
	_ search.Embedder           = (*embedder.OllamaEmbedder)(nil)
	_ search.Reranker           = (*rerank.Reranker)(nil)
	_ server.Searcher           = (*search.Service)(nil)
	_ server.Evaluator          = (*evaluation.Runner)(nil)
	_ evaluation.Searcher       = (*search.Service)(nil)
)
