package index

import (
	"fmt"
	"math"

	"github.com/docdex/docdex/internal/domain"
	"github.com/docdex/docdex/internal/domain/document"
)

// DefaultVersion is the serialization format version written by this build.
const DefaultVersion = "1"

// Index is an immutable snapshot of a searchable corpus: documents in
// insertion order (the relevance tie-break order), the term vocabulary with
// first-seen ordinals, smoothed IDF scores, and optional per-document
// embedding vectors. Replacing the corpus means constructing a new Index and
// swapping the reference; an Index is never mutated after construction, so
// concurrent readers need no coordination.
type Index struct {
	version    string
	docs       []document.Document
	byID       map[string]int
	vocab      map[string]int
	idf        map[string]float64
	embeddings map[string][]float32

	// Derived at construction, never serialized.
	docWeights []map[string]float64
	docNorms   []float64
}

// New builds an index over the given documents. Embeddings may be nil or
// partial; a document without a vector simply has no dense score at query
// time.
func New(docs []document.Document, embeddings map[string][]float32, version string) (*Index, error) {
	if version == "" {
		version = DefaultVersion
	}

	byID := make(map[string]int, len(docs))
	for i := range docs {
		id := docs[i].ID()
		if id == "" {
			return nil, fmt.Errorf("%w: document %d has empty id", domain.ErrInvalidDocument, i)
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("%w: duplicate document id %q", domain.ErrInvalidDocument, id)
		}
		byID[id] = i
	}

	vocab, idf := buildVocabulary(docs)

	idx := &Index{
		version:    version,
		docs:       docs,
		byID:       byID,
		vocab:      vocab,
		idf:        idf,
		embeddings: embeddings,
	}
	idx.deriveWeights()
	return idx, nil
}

// Reconstruct rebuilds an index from persisted parts, validating the index
// invariants. Used by the codec; a failure means the persisted document is
// malformed and must not be served from.
func Reconstruct(
	version string,
	docs []document.Document,
	vocab map[string]int,
	idf map[string]float64,
	embeddings map[string][]float32,
) (*Index, error) {
	if version == "" {
		return nil, fmt.Errorf("%w: missing version", domain.ErrMalformedIndex)
	}
	if len(vocab) != len(idf) {
		return nil, fmt.Errorf("%w: vocabulary has %d terms, idf has %d",
			domain.ErrMalformedIndex, len(vocab), len(idf))
	}

	seen := make([]bool, len(vocab))
	for term, ord := range vocab {
		if ord < 0 || ord >= len(vocab) {
			return nil, fmt.Errorf("%w: ordinal %d for term %q out of range",
				domain.ErrMalformedIndex, ord, term)
		}
		if seen[ord] {
			return nil, fmt.Errorf("%w: duplicate ordinal %d", domain.ErrMalformedIndex, ord)
		}
		seen[ord] = true
		if _, ok := idf[term]; !ok {
			return nil, fmt.Errorf("%w: term %q has no idf score", domain.ErrMalformedIndex, term)
		}
	}

	byID := make(map[string]int, len(docs))
	for i := range docs {
		id := docs[i].ID()
		if id == "" {
			return nil, fmt.Errorf("%w: document %d has empty id", domain.ErrMalformedIndex, i)
		}
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("%w: duplicate document id %q", domain.ErrMalformedIndex, id)
		}
		if !docs[i].Type().IsValid() {
			return nil, fmt.Errorf("%w: document %q has invalid type %q",
				domain.ErrMalformedIndex, id, docs[i].Type())
		}
		byID[id] = i
	}

	for id := range embeddings {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("%w: embedding for unknown document %q",
				domain.ErrMalformedIndex, id)
		}
	}

	idx := &Index{
		version:    version,
		docs:       docs,
		byID:       byID,
		vocab:      vocab,
		idf:        idf,
		embeddings: embeddings,
	}
	idx.deriveWeights()
	return idx, nil
}

// buildVocabulary assigns first-seen ordinals over title + " " + content in
// document order and computes idf(t) = ln((N+1)/(df+1)) + 1 from a single-pass
// document-frequency count. The +1 smoothing keeps idf > 0 for terms present
// in every document.
func buildVocabulary(docs []document.Document) (map[string]int, map[string]float64) {
	vocab := make(map[string]int)
	df := make(map[string]int)

	for i := range docs {
		tokens := Tokenize(docs[i].Title() + " " + docs[i].Content())
		inDoc := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := vocab[t]; !ok {
				vocab[t] = len(vocab)
			}
			inDoc[t] = struct{}{}
		}
		for t := range inDoc {
			df[t]++
		}
	}

	n := float64(len(docs))
	idf := make(map[string]float64, len(vocab))
	for t := range vocab {
		idf[t] = math.Log((n+1)/float64(df[t]+1)) + 1
	}
	return vocab, idf
}

// deriveWeights precomputes each document's weighted term vector and norm so
// query-time scoring does not re-tokenize the corpus.
func (idx *Index) deriveWeights() {
	idx.docWeights = make([]map[string]float64, len(idx.docs))
	idx.docNorms = make([]float64, len(idx.docs))
	for i := range idx.docs {
		w := idx.Weights(Tokenize(idx.docs[i].Title() + " " + idx.docs[i].Content()))
		idx.docWeights[i] = w
		idx.docNorms[i] = Norm(w)
	}
}

// Weights builds the max-TF-normalized, idf-weighted term vector for a token
// sequence. Terms unknown to the vocabulary contribute nothing.
func (idx *Index) Weights(tokens []string) map[string]float64 {
	tf := make(map[string]int)
	maxTF := 0
	for _, t := range tokens {
		if _, known := idx.vocab[t]; !known {
			continue
		}
		tf[t]++
		if tf[t] > maxTF {
			maxTF = tf[t]
		}
	}
	if maxTF == 0 {
		return nil
	}

	weights := make(map[string]float64, len(tf))
	for t, n := range tf {
		weights[t] = float64(n) / float64(maxTF) * idx.idf[t]
	}
	return weights
}

// Norm returns the Euclidean norm of a weighted term vector.
func Norm(weights map[string]float64) float64 {
	var sum float64
	for _, w := range weights {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Version returns the serialization format version.
func (idx *Index) Version() string { return idx.version }

// Documents returns the corpus in insertion order. Callers must treat the
// slice as read-only.
func (idx *Index) Documents() []document.Document { return idx.docs }

// Len returns the document count.
func (idx *Index) Len() int { return len(idx.docs) }

// Document returns a document by id.
func (idx *Index) Document(id string) (document.Document, bool) {
	i, ok := idx.byID[id]
	if !ok {
		return document.Document{}, false
	}
	return idx.docs[i], true
}

// Embedding returns the dense vector for a document, if one exists.
func (idx *Index) Embedding(id string) ([]float32, bool) {
	v, ok := idx.embeddings[id]
	return v, ok
}

// HasEmbeddings reports whether any document carries a dense vector.
func (idx *Index) HasEmbeddings() bool { return len(idx.embeddings) > 0 }

// VocabSize returns the number of distinct terms.
func (idx *Index) VocabSize() int { return len(idx.vocab) }

// Ordinal returns the vocabulary ordinal of a term.
func (idx *Index) Ordinal(term string) (int, bool) {
	ord, ok := idx.vocab[term]
	return ord, ok
}

// IDF returns the inverse-document-frequency score of a term (0 if unknown).
func (idx *Index) IDF(term string) float64 { return idx.idf[term] }

// Terms returns vocabulary terms ordered by ordinal (first-seen order).
func (idx *Index) Terms() []string {
	terms := make([]string, len(idx.vocab))
	for t, ord := range idx.vocab {
		terms[ord] = t
	}
	return terms
}

// DocWeights returns the precomputed weighted term vector of document i.
func (idx *Index) DocWeights(i int) map[string]float64 { return idx.docWeights[i] }

// DocNorm returns the precomputed vector norm of document i.
func (idx *Index) DocNorm(i int) float64 { return idx.docNorms[i] }
