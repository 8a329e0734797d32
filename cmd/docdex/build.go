package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/domain"
	idx "github.com/docdex/docdex/internal/index"
)

var flagOutput string

var buildCmd = &cobra.Command{
	Use:   "build <analysis.json>",
	Short: "Build a search index from analyzer output",
	Long: "Reads an analysis result file (endpoints, entities, services, types,\n" +
		"pages), extracts the document corpus, computes term statistics and optional\n" +
		"embeddings, and writes the serialized index.",
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&flagOutput, "output", "o", "index.json", "path to write the serialized index")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read analysis %s: %w", args[0], err)
	}
	var analysis domain.AnalysisResult
	if err := json.Unmarshal(data, &analysis); err != nil {
		return fmt.Errorf("parse analysis %s: %w", args[0], err)
	}

	store := openCacheStore(ctx, cfg, logger)
	if store != nil {
		defer store.Close()
	}

	var batcher domain.BatchEmbedder
	if embedder := buildEmbedder(cfg, store, logger); embedder != nil {
		if be, ok := embedder.(domain.BatchEmbedder); ok {
			batcher = be
		} else {
			batcher = perTextBatcher{embedder}
		}
	}

	builder := idx.NewBuilder(batcher, logger).
		WithBatchSize(cfg.Embedding.BatchSize).
		WithParallelism(cfg.Embedding.Parallelism)

	index, err := builder.Build(ctx, &analysis)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	out, err := idx.Marshal(index)
	if err != nil {
		return fmt.Errorf("serialize index: %w", err)
	}
	if err := os.WriteFile(flagOutput, out, 0o644); err != nil {
		return fmt.Errorf("write index %s: %w", flagOutput, err)
	}

	logger.Info("Index built",
		zap.String("output", flagOutput),
		zap.Int("documents", index.Len()),
		zap.Int("vocabulary", index.VocabSize()),
		zap.Bool("embeddings", index.HasEmbeddings()),
	)
	return nil
}

// perTextBatcher adapts a single-shot embedder to the batch interface.
type perTextBatcher struct {
	inner domain.Embedder
}

func (p perTextBatcher) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, p.inner, texts)
}
