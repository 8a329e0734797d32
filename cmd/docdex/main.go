package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/db"
	dbredis "github.com/docdex/docdex/internal/db/redis"
	"github.com/docdex/docdex/internal/domain"
	idx "github.com/docdex/docdex/internal/index"
	logpkg "github.com/docdex/docdex/internal/logger"
	"github.com/docdex/docdex/internal/metrics"
	"github.com/docdex/docdex/internal/repository/embcache"
	openaitr "github.com/docdex/docdex/internal/transport/openai"
	"github.com/docdex/docdex/internal/version"
)

var flagIndex string

var rootCmd = &cobra.Command{
	Use:   "docdex",
	Short: "Documentation search engine over analyzer output",
	Long: "docdex builds a searchable index over the structured facts a repository\n" +
		"analyzer extracts (endpoints, entities, services, types, pages) and answers\n" +
		"relevance queries with hybrid lexical and dense scoring.",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagIndex, "index", "index.json", "path to the serialized index file")
}

// setup loads config and builds the logger. Shared by every subcommand.
func setup() (config.Config, *zap.Logger, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("docdex starting",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
	)
	return cfg, logger, nil
}

// buildEmbedder assembles the embedding chain: OpenAI provider wrapped in the
// optional Redis-backed vector cache. Returns nil when embedding is disabled.
func buildEmbedder(cfg config.Config, store db.Store, logger *zap.Logger) domain.Embedder {
	if !cfg.Embedding.Enabled() {
		return nil
	}

	metrics.RegisterEmbeddingMetrics()

	var embedder domain.Embedder = openaitr.NewEmbedder(&openaitr.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})

	if store != nil {
		embedder = embcache.New(
			embedder, store, cfg.Cache.KeyPrefix, cfg.Embedding.Model,
			metrics.EmbeddingCacheTotal, logger,
		)
	}
	return embedder
}

// newReranker builds the chat-completion result reranker.
func newReranker(cfg config.Config, logger *zap.Logger) *openaitr.Reranker {
	return openaitr.NewReranker(&openaitr.RerankerConfig{
		APIKey:  cfg.Rerank.APIKey,
		BaseURL: cfg.Rerank.BaseURL,
		Model:   cfg.Rerank.Model,
		Logger:  logger,
	})
}

// openCacheStore connects the optional embedding cache store.
func openCacheStore(ctx context.Context, cfg config.Config, logger *zap.Logger) db.Store {
	if !cfg.Cache.Enabled() {
		return nil
	}
	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.Cache.Addrs,
		Password: cfg.Cache.Password,
	})
	if err != nil {
		logger.Warn("Embedding cache unavailable, continuing without it", zap.Error(err))
		return nil
	}
	if err := store.Ping(ctx); err != nil {
		logger.Warn("Embedding cache unreachable, continuing without it", zap.Error(err))
		store.Close()
		return nil
	}
	return store
}

// loadIndexFile reads and hydrates a serialized index.
func loadIndexFile(path string) (*idx.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	index, err := idx.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("load index %s: %w", path, err)
	}
	return index, nil
}
