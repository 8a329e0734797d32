package index

import (
	"encoding/json"
	"fmt"

	"github.com/docdex/docdex/internal/domain"
	"github.com/docdex/docdex/internal/domain/document"
)

// The persisted index is the only wire format this engine defines. Map-like
// parts (vocabulary, idfScores, embeddings) are written as explicit ordered
// key/value pair lists, not JSON objects, so the format does not depend on any
// runtime's associative-container semantics and round-trips byte-identically:
// vocabulary and idfScores in ordinal order, embeddings in document order.

type documentDTO struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Content  string            `json:"content"`
	Type     string            `json:"type"`
	Path     string            `json:"path,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type ordinalPair struct {
	Key   string `json:"key"`
	Value int    `json:"value"`
}

type scorePair struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

type vectorPair struct {
	Key   string    `json:"key"`
	Value []float32 `json:"value"`
}

type indexDTO struct {
	Version    *string        `json:"version"`
	Documents  *[]documentDTO `json:"documents"`
	Vocabulary *[]ordinalPair `json:"vocabulary"`
	IDFScores  *[]scorePair   `json:"idfScores"`
	Embeddings *[]vectorPair  `json:"embeddings"`
}

// Marshal serializes an index into its transportable JSON document.
func Marshal(idx *Index) ([]byte, error) {
	version := idx.Version()

	docs := make([]documentDTO, idx.Len())
	for i, d := range idx.Documents() {
		docs[i] = documentDTO{
			ID:       d.ID(),
			Title:    d.Title(),
			Content:  d.Content(),
			Type:     string(d.Type()),
			Path:     d.Path(),
			Tags:     d.Tags(),
			Metadata: d.Metadata(),
		}
	}

	terms := idx.Terms()
	vocab := make([]ordinalPair, len(terms))
	idf := make([]scorePair, len(terms))
	for ord, term := range terms {
		vocab[ord] = ordinalPair{Key: term, Value: ord}
		idf[ord] = scorePair{Key: term, Value: idx.IDF(term)}
	}

	embeddings := make([]vectorPair, 0)
	for _, d := range idx.Documents() {
		if vec, ok := idx.Embedding(d.ID()); ok {
			embeddings = append(embeddings, vectorPair{Key: d.ID(), Value: vec})
		}
	}

	data, err := json.Marshal(indexDTO{
		Version:    &version,
		Documents:  &docs,
		Vocabulary: &vocab,
		IDFScores:  &idf,
		Embeddings: &embeddings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal index: %w", err)
	}
	return data, nil
}

// Unmarshal hydrates an index from its transportable document. Any missing
// field, duplicate key, or invariant violation is fatal: a partially-hydrated
// index must never be served from.
func Unmarshal(data []byte) (*Index, error) {
	var dto indexDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedIndex, err)
	}

	switch {
	case dto.Version == nil:
		return nil, fmt.Errorf("%w: missing version", domain.ErrMalformedIndex)
	case dto.Documents == nil:
		return nil, fmt.Errorf("%w: missing documents", domain.ErrMalformedIndex)
	case dto.Vocabulary == nil:
		return nil, fmt.Errorf("%w: missing vocabulary", domain.ErrMalformedIndex)
	case dto.IDFScores == nil:
		return nil, fmt.Errorf("%w: missing idfScores", domain.ErrMalformedIndex)
	case dto.Embeddings == nil:
		return nil, fmt.Errorf("%w: missing embeddings", domain.ErrMalformedIndex)
	}

	docs := make([]document.Document, len(*dto.Documents))
	for i, d := range *dto.Documents {
		docs[i] = document.Reconstruct(
			d.ID, d.Title, d.Content, document.Type(d.Type),
			d.Path, d.Tags, d.Metadata,
		)
	}

	vocab := make(map[string]int, len(*dto.Vocabulary))
	for _, p := range *dto.Vocabulary {
		if _, dup := vocab[p.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate vocabulary term %q", domain.ErrMalformedIndex, p.Key)
		}
		vocab[p.Key] = p.Value
	}

	idf := make(map[string]float64, len(*dto.IDFScores))
	for _, p := range *dto.IDFScores {
		if _, dup := idf[p.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate idf term %q", domain.ErrMalformedIndex, p.Key)
		}
		idf[p.Key] = p.Value
	}

	var embeddings map[string][]float32
	if len(*dto.Embeddings) > 0 {
		embeddings = make(map[string][]float32, len(*dto.Embeddings))
		for _, p := range *dto.Embeddings {
			if _, dup := embeddings[p.Key]; dup {
				return nil, fmt.Errorf("%w: duplicate embedding for %q", domain.ErrMalformedIndex, p.Key)
			}
			embeddings[p.Key] = p.Value
		}
	}

	return Reconstruct(*dto.Version, docs, vocab, idf, embeddings)
}
