// Command alexandria-eval runs the golden-set evaluation against a live
// search stack and writes CSV reports. It exits non-zero when the run
// misses the quality thresholds, so it can gate CI.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sebc-dev/alexandria/internal/config"
	"github.com/sebc-dev/alexandria/internal/embedder"
	"github.com/sebc-dev/alexandria/internal/evaluation"
	"github.com/sebc-dev/alexandria/internal/rerank"
	"github.com/sebc-dev/alexandria/internal/retrieval"
	"github.com/sebc-dev/alexandria/internal/search"
)

func main() {
	label := flag.String("label", "baseline", "configuration label recorded in report filenames")
	goldenPath := flag.String("golden", "", "golden set path (overrides EVAL_GOLDEN_SET)")
	outputDir := flag.String("out", "", "report output directory (overrides EVAL_OUTPUT_DIR)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	passed, err := run(*label, *goldenPath, *outputDir)
	if err != nil {
		slog.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
	if !passed {
		os.Exit(2)
	}
}

func run(label, goldenPath, outputDir string) (bool, error) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return false, fmt.Errorf("failed to load config: %w", err)
	}
	if goldenPath == "" {
		goldenPath = cfg.EvalGoldenSetPath
	}
	if outputDir == "" {
		outputDir = cfg.EvalOutputDir
	}

	keywords, err := retrieval.NewPostgresKeywordSearcher(ctx, cfg.DatabaseURL)
	if err != nil {
		return false, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer keywords.Close()

	vectors, err := retrieval.NewQdrantRetriever(ctx, cfg.QdrantGRPCURL, cfg.QdrantCollection)
	if err != nil {
		return false, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer vectors.Close()

	embed := embedder.NewOllamaEmbedder(embedder.OllamaConfig{
		BaseURL: cfg.OllamaURL,
		Model:   cfg.OllamaEmbeddingModel,
	})
	scorer := rerank.NewHTTPCrossEncoder(rerank.HTTPCrossEncoderConfig{
		BaseURL: cfg.RerankerURL,
	})

	svc := search.NewService(embed, retrieval.NewHybridRetriever(vectors, keywords), rerank.New(scorer),
		search.WithFusionAlpha(cfg.FusionAlpha),
		search.WithLogger(loggerFor("search")),
	)

	runner, err := evaluation.NewRunner(
		svc,
		evaluation.NewFileGoldenSource(goldenPath),
		evaluation.NewCSVExporter(outputDir),
		evaluation.WithThresholds(evaluation.Thresholds{
			RecallAt10: cfg.EvalRecallThreshold,
			MRR:        cfg.EvalMRRThreshold,
		}),
		evaluation.WithConcurrency(cfg.EvalConcurrency),
		evaluation.WithRunnerLogger(loggerFor("eval")),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create evaluation runner: %w", err)
	}

	summary, err := runner.Evaluate(ctx, label)
	if err != nil {
		return false, err
	}

	printSummary(summary)
	return summary.Passed, nil
}

func loggerFor(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func printSummary(s *evaluation.Summary) {
	fmt.Printf("run %s: %d queries\n", s.RunID, s.Global.Count)
	fmt.Printf("  recall@10 %.4f  mrr %.4f  ndcg@10 %.4f  map %.4f\n",
		s.Global.RecallAt10, s.Global.MRR, s.Global.NDCGAt10, s.Global.MAP)
	for _, qt := range []evaluation.QueryType{
		evaluation.QueryFactual,
		evaluation.QueryConceptual,
		evaluation.QueryCodeLookup,
		evaluation.QueryTroubleshooting,
	} {
		agg, ok := s.ByType[qt]
		if !ok {
			continue
		}
		fmt.Printf("  %-16s count %-3d recall@10 %.4f  mrr %.4f\n", qt, agg.Count, agg.RecallAt10, agg.MRR)
	}
	if s.Passed {
		fmt.Println("result: PASS")
		return
	}
	fmt.Println("result: FAIL")
	for _, q := range s.FailedQueries {
		fmt.Printf("  failed: %s\n", q)
	}
}
