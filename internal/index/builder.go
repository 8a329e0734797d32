package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/docdex/docdex/internal/domain"
	"github.com/docdex/docdex/internal/domain/document"
)

// Build defaults.
const (
	DefaultBatchSize   = 64
	DefaultParallelism = 4
)

// Builder constructs index snapshots from analysis results. Building is a
// one-shot, cancellable operation; the returned Index is immutable.
type Builder struct {
	embedder    domain.BatchEmbedder
	batchSize   int
	parallelism int
	version     string
	logger      *zap.Logger
}

// NewBuilder creates a builder. embedder may be nil, in which case the index
// carries no dense vectors and scoring stays purely lexical.
func NewBuilder(embedder domain.BatchEmbedder, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		embedder:    embedder,
		batchSize:   DefaultBatchSize,
		parallelism: DefaultParallelism,
		version:     DefaultVersion,
		logger:      logger,
	}
}

// WithBatchSize sets how many texts go into one embedding call.
func (b *Builder) WithBatchSize(n int) *Builder {
	if n > 0 {
		b.batchSize = n
	}
	return b
}

// WithParallelism sets how many embedding calls run concurrently.
func (b *Builder) WithParallelism(n int) *Builder {
	if n > 0 {
		b.parallelism = n
	}
	return b
}

// WithVersion overrides the version string carried by built indexes.
func (b *Builder) WithVersion(v string) *Builder {
	if v != "" {
		b.version = v
	}
	return b
}

// Build extracts the corpus and constructs an index over it. An embedding
// provider failure degrades to a lexical-only index; context cancellation
// aborts the build.
func (b *Builder) Build(ctx context.Context, analysis *domain.AnalysisResult) (*Index, error) {
	if analysis == nil {
		return nil, fmt.Errorf("%w: nil analysis result", domain.ErrInvalidDocument)
	}

	docs := ExtractCorpus(analysis)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build canceled: %w", err)
	}

	embeddings, err := b.embedCorpus(ctx, docs)
	if err != nil {
		return nil, err
	}

	idx, err := New(docs, embeddings, b.version)
	if err != nil {
		return nil, fmt.Errorf("construct index: %w", err)
	}

	b.logger.Info("Index built",
		zap.Int("documents", idx.Len()),
		zap.Int("vocabulary", idx.VocabSize()),
		zap.Int("embeddings", len(embeddings)),
	)
	return idx, nil
}

// embedCorpus embeds title + " " + content for every document in document
// order, batched and bounded-parallel. Returns nil (not an error) when the
// provider fails: embedding is additive and its absence only changes the
// score blend.
func (b *Builder) embedCorpus(ctx context.Context, docs []document.Document) (map[string][]float32, error) {
	if b.embedder == nil || len(docs) == 0 {
		return nil, nil
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Title() + " " + docs[i].Content()
	}

	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)

	for start := 0; start < len(texts); start += b.batchSize {
		start := start
		end := min(start+b.batchSize, len(texts))
		g.Go(func() error {
			res, err := b.embedder.BatchEmbed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
			}
			if len(res.Embeddings) != end-start {
				return fmt.Errorf("embed batch [%d:%d]: got %d vectors: %w",
					start, end, len(res.Embeddings), domain.ErrEmbeddingProviderError)
			}
			copy(vectors[start:end], res.Embeddings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("build canceled: %w", ctx.Err())
		}
		b.logger.Warn("Embedding provider failed, building lexical-only index", zap.Error(err))
		return nil, nil
	}

	embeddings := make(map[string][]float32, len(docs))
	for i := range docs {
		if len(vectors[i]) > 0 {
			embeddings[docs[i].ID()] = vectors[i]
		}
	}
	return embeddings, nil
}
