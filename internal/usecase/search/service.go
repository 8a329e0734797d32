package search

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/domain"
	"github.com/docdex/docdex/internal/domain/document"
	"github.com/docdex/docdex/internal/index"
)

// DefaultCacheSize bounds the query response cache.
const DefaultCacheSize = 512

// Result is a single scored search hit. Document is shared with the index,
// not copied.
type Result struct {
	Document   document.Document
	Score      float64
	Highlights []Highlight
}

// scoredDoc is the assembler's working representation before highlights.
type scoredDoc struct {
	pos   int // insertion position in the index, the tie-break order
	doc   document.Document
	score float64
}

// Service answers relevance queries against the current index snapshot. The
// index is swapped atomically on rebuild/reload; a query holds the pointer it
// loaded for its whole call, so a swap is never visible mid-flight. The
// embedder and reranker are optional collaborators whose absence or failure
// only degrades scoring, never the call.
type Service struct {
	idx      atomic.Pointer[index.Index]
	gen      atomic.Uint64
	embedder domain.Embedder
	reranker Reranker
	cache    *lru.Cache[[32]byte, []Result]
	logger   *zap.Logger
}

// New creates a search service with no index loaded yet.
func New(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[[32]byte, []Result](DefaultCacheSize)
	if err != nil {
		panic(fmt.Sprintf("create response cache: %v", err))
	}
	return &Service{cache: cache, logger: logger}
}

// WithEmbedder attaches a query-time embedding provider.
func (s *Service) WithEmbedder(e domain.Embedder) *Service {
	s.embedder = e
	return s
}

// WithReranker attaches the AI reranking oracle.
func (s *Service) WithReranker(r Reranker) *Service {
	s.reranker = r
	return s
}

// SetIndex atomically swaps in a new index snapshot. Cached responses belong
// to the previous generation and stop being served.
func (s *Service) SetIndex(idx *index.Index) {
	s.idx.Store(idx)
	s.gen.Add(1)
}

// Index returns the current index snapshot (nil before the first SetIndex).
func (s *Service) Index() *index.Index {
	return s.idx.Load()
}

// Search scores the corpus against the query and assembles filtered, ordered,
// highlighted results.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	idx := s.idx.Load()
	if idx == nil {
		return nil, domain.ErrIndexNotReady
	}
	opts, err := opts.normalized()
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(query, opts)
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	results := s.assemble(ctx, idx, query, opts)

	s.cache.Add(key, results)
	return results, nil
}

// Suggest completes the last token of a partial query with vocabulary terms
// strictly extending it, highest idf first.
func (s *Service) Suggest(partial string, max int) ([]string, error) {
	idx := s.idx.Load()
	if idx == nil {
		return nil, domain.ErrIndexNotReady
	}
	if max <= 0 {
		max = DefaultSuggestions
	}

	tokens := index.Tokenize(partial)
	if len(tokens) == 0 {
		return nil, nil
	}
	prefix := tokens[len(tokens)-1]

	type completion struct {
		term string
		idf  float64
	}
	var completions []completion
	for _, term := range idx.Terms() {
		if term != prefix && strings.HasPrefix(term, prefix) {
			completions = append(completions, completion{term: term, idf: idx.IDF(term)})
		}
	}
	// Highest idf first; the stable sort keeps ordinal order on ties.
	sort.SliceStable(completions, func(i, j int) bool {
		return completions[i].idf > completions[j].idf
	})
	if len(completions) > max {
		completions = completions[:max]
	}

	base := strings.Join(tokens[:len(tokens)-1], " ")
	suggestions := make([]string, len(completions))
	for i, c := range completions {
		if base == "" {
			suggestions[i] = c.term
		} else {
			suggestions[i] = base + " " + c.term
		}
	}
	return suggestions, nil
}

// FindRelated searches with a synthetic query built from the document's own
// title and tags, at a low threshold, and drops the document itself.
func (s *Service) FindRelated(ctx context.Context, documentID string, limit int) ([]Result, error) {
	idx := s.idx.Load()
	if idx == nil {
		return nil, domain.ErrIndexNotReady
	}
	doc, ok := idx.Document(documentID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, documentID)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := doc.Title()
	if tags := doc.Tags(); len(tags) > 0 {
		query += " " + strings.Join(tags, " ")
	}

	results := s.assemble(ctx, idx, query, Options{
		Limit:     limit + 1,
		Threshold: relatedThreshold,
	})

	related := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Document.ID() != documentID {
			related = append(related, r)
		}
	}
	if len(related) > limit {
		related = related[:limit]
	}
	return related, nil
}

// assemble runs the full result pipeline: filter, score, threshold, stable
// sort, optional rerank, dense supplement, truncate, highlight.
func (s *Service) assemble(
	ctx context.Context, idx *index.Index, query string, opts Options,
) []Result {
	queryTokens := index.Tokenize(query)
	queryWeights := idx.Weights(queryTokens)
	queryNorm := index.Norm(queryWeights)

	queryVec := s.embedQuery(ctx, idx, query)

	// 1. Filter by type and tag.
	candidates := filterCandidates(idx, opts)

	// Dense similarity carries blend weight only when it is actually
	// available for part of the candidate set.
	hasDense := false
	if queryVec != nil {
		for _, c := range candidates {
			if _, ok := idx.Embedding(c.doc.ID()); ok {
				hasDense = true
				break
			}
		}
	}

	// 2-3. Score and apply the threshold.
	results := make([]scoredDoc, 0, len(candidates))
	for _, c := range candidates {
		lexical := cosineWeights(queryWeights, idx.DocWeights(c.pos), queryNorm, idx.DocNorm(c.pos))
		boost := titleBoost(query, queryTokens, c.doc.Title())
		var dense float64
		if queryVec != nil {
			if vec, ok := idx.Embedding(c.doc.ID()); ok {
				dense = cosineVectors(queryVec, vec)
			}
		}
		c.score = blendScore(lexical, boost, dense, hasDense)
		if c.score < opts.Threshold {
			continue
		}
		results = append(results, c)
	}

	// 4. Order by score; ties keep index insertion order.
	sortByScore(results)

	// 5. Best-effort AI rerank of the top slice.
	if opts.AIRerank && s.reranker != nil && len(results) > 0 {
		results = s.rerank(ctx, query, results, opts.Limit)
	}

	// 6. Dense-only supplement when the lexical pass came up short.
	if queryVec != nil && len(results) < opts.Limit {
		results = s.denseSupplement(idx, queryVec, candidates, results)
	}

	// 7. Truncate.
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	// 8. Highlights.
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = Result{
			Document:   r.doc,
			Score:      r.score,
			Highlights: extractHighlights(queryTokens, r.doc.Title(), r.doc.Content()),
		}
	}
	return out
}

// embedQuery embeds the query once per call. Provider absence or failure
// degrades to pure lexical scoring.
func (s *Service) embedQuery(ctx context.Context, idx *index.Index, query string) []float32 {
	if s.embedder == nil || !idx.HasEmbeddings() || strings.TrimSpace(query) == "" {
		return nil
	}
	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("Query embedding failed, falling back to lexical scoring", zap.Error(err))
		return nil
	}
	return res.Embedding
}

// rerank sends the top min(3*limit, 30) candidates to the oracle and applies
// its permutation. Any failure or malformed response keeps the original order.
func (s *Service) rerank(ctx context.Context, query string, results []scoredDoc, limit int) []scoredDoc {
	n := min(3*limit, maxRerankCandidates, len(results))
	head := results[:n]

	perm, err := s.reranker.Rerank(ctx, query, rerankCandidates(head))
	if err != nil {
		s.logger.Warn("Rerank failed, keeping original order", zap.Error(err))
		return results
	}
	if !isPermutation(perm, n) {
		s.logger.Warn("Rerank returned malformed permutation, keeping original order",
			zap.Ints("permutation", perm), zap.Int("candidates", n))
		return results
	}

	reordered := applyRerank(head, perm)
	return append(reordered, results[n:]...)
}

// denseSupplement runs a dense-only pass over the not-yet-returned candidates
// with a fixed acceptance floor, then re-sorts the combined set, first
// occurrence winning on duplicate ids.
func (s *Service) denseSupplement(
	idx *index.Index, queryVec []float32, candidates, results []scoredDoc,
) []scoredDoc {
	returned := make(map[string]struct{}, len(results))
	for _, r := range results {
		returned[r.doc.ID()] = struct{}{}
	}

	for _, c := range candidates {
		if _, done := returned[c.doc.ID()]; done {
			continue
		}
		vec, ok := idx.Embedding(c.doc.ID())
		if !ok {
			continue
		}
		if dense := cosineVectors(queryVec, vec); dense > denseFloor {
			c.score = dense
			results = append(results, c)
		}
	}

	sortByScore(results)

	seen := make(map[string]struct{}, len(results))
	deduped := results[:0]
	for _, r := range results {
		if _, dup := seen[r.doc.ID()]; dup {
			continue
		}
		seen[r.doc.ID()] = struct{}{}
		deduped = append(deduped, r)
	}
	return deduped
}

// filterCandidates applies the type and tag filters; the tag filter passes a
// document carrying any of the requested tags.
func filterCandidates(idx *index.Index, opts Options) []scoredDoc {
	docs := idx.Documents()
	candidates := make([]scoredDoc, 0, len(docs))

	for i := range docs {
		doc := docs[i]
		if len(opts.Types) > 0 && !containsType(opts.Types, doc.Type()) {
			continue
		}
		if len(opts.Tags) > 0 && !hasAnyTag(&doc, opts.Tags) {
			continue
		}
		candidates = append(candidates, scoredDoc{pos: i, doc: doc})
	}
	return candidates
}

func containsType(types []document.Type, t document.Type) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func hasAnyTag(doc *document.Document, tags []string) bool {
	for _, t := range tags {
		if doc.HasTag(t) {
			return true
		}
	}
	return false
}

// sortByScore orders descending by score; the stable sort keeps insertion
// order on ties, which is part of the result ordering contract.
func sortByScore(results []scoredDoc) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
}

// cacheKey folds the index generation and the full option set into the
// response cache key, so an index swap invalidates every cached entry.
func (s *Service) cacheKey(query string, opts Options) [32]byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\x00%s\x00%d\x00%g\x00%v",
		s.gen.Load(), query, opts.Limit, opts.Threshold, opts.AIRerank)
	for _, t := range opts.Types {
		b.WriteString("\x00t:" + string(t))
	}
	for _, t := range opts.Tags {
		b.WriteString("\x00g:" + t)
	}
	return sha256.Sum256([]byte(b.String()))
}
