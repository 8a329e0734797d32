package index

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/docdex/docdex/internal/domain"
	"github.com/docdex/docdex/internal/domain/document"
)

func buildTestIndex(t *testing.T, embeddings map[string][]float32) *Index {
	t.Helper()
	docs := []document.Document{
		document.Reconstruct("a", "User Login", "Authenticates a user and returns a token",
			document.TypeEndpoint, "/auth/login", []string{"auth"}, nil),
		document.Reconstruct("b", "User Logout", "Invalidates the user session token",
			document.TypeEndpoint, "/auth/logout", []string{"auth"}, nil),
		document.Reconstruct("c", "List Products", "Returns a paginated list of products",
			document.TypeEndpoint, "/products", nil, nil),
	}
	idx, err := New(docs, embeddings, DefaultVersion)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

func TestCodec_RoundTrip(t *testing.T) {
	embeddings := map[string][]float32{
		"a": {0.1, 0.2, 0.3},
		"b": {0.4, 0.5, 0.6},
	}
	idx := buildTestIndex(t, embeddings)

	data, err := Marshal(idx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got.Version() != idx.Version() {
		t.Errorf("version = %q, want %q", got.Version(), idx.Version())
	}
	if got.Len() != idx.Len() {
		t.Fatalf("document count = %d, want %d", got.Len(), idx.Len())
	}
	for i, doc := range idx.Documents() {
		hydrated := got.Documents()[i]
		if hydrated.ID() != doc.ID() || hydrated.Title() != doc.Title() || hydrated.Type() != doc.Type() {
			t.Errorf("doc %d: %q/%q/%q, want %q/%q/%q",
				i, hydrated.ID(), hydrated.Title(), hydrated.Type(), doc.ID(), doc.Title(), doc.Type())
		}
	}
	for _, term := range idx.Terms() {
		wantOrd, _ := idx.Ordinal(term)
		gotOrd, ok := got.Ordinal(term)
		if !ok || gotOrd != wantOrd {
			t.Errorf("ordinal(%q) = %d (%v), want %d", term, gotOrd, ok, wantOrd)
		}
		if math.Abs(got.IDF(term)-idx.IDF(term)) > 1e-15 {
			t.Errorf("idf(%q) = %v, want %v", term, got.IDF(term), idx.IDF(term))
		}
	}
	for id, want := range embeddings {
		vec, ok := got.Embedding(id)
		if !ok || len(vec) != len(want) {
			t.Errorf("embedding(%q) missing or wrong length", id)
		}
	}
	if _, ok := got.Embedding("c"); ok {
		t.Error("document c should have no embedding")
	}
}

func TestCodec_StableBytes(t *testing.T) {
	idx := buildTestIndex(t, map[string][]float32{"a": {1, 2}})

	first, err := Marshal(idx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	second, err := Marshal(idx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("repeated serialization of the same index differed")
	}

	// Round-tripping must also be byte-stable.
	hydrated, err := Unmarshal(first)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	third, err := Marshal(hydrated)
	if err != nil {
		t.Fatalf("Marshal after round-trip: %v", err)
	}
	if !bytes.Equal(first, third) {
		t.Error("serialization changed after a round-trip")
	}
}

func TestCodec_OrderedPairLists(t *testing.T) {
	idx := buildTestIndex(t, nil)

	data, err := Marshal(idx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var dto indexDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		t.Fatalf("reparse: %v", err)
	}

	// Vocabulary pairs appear in ordinal order.
	for i, p := range *dto.Vocabulary {
		if p.Value != i {
			t.Errorf("vocabulary[%d] has ordinal %d", i, p.Value)
		}
	}
	// idfScores keys follow the same order.
	for i, p := range *dto.IDFScores {
		if p.Key != (*dto.Vocabulary)[i].Key {
			t.Errorf("idfScores[%d] key %q out of step with vocabulary key %q",
				i, p.Key, (*dto.Vocabulary)[i].Key)
		}
	}
}

func TestCodec_EmptyIndex(t *testing.T) {
	idx, err := New(nil, nil, DefaultVersion)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := Marshal(idx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Len() != 0 || got.VocabSize() != 0 || got.HasEmbeddings() {
		t.Errorf("empty index round-trip not empty: %d docs, %d terms", got.Len(), got.VocabSize())
	}
}

func TestUnmarshal_MissingFields(t *testing.T) {
	idx := buildTestIndex(t, nil)
	data, err := Marshal(idx)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	for _, field := range []string{"version", "documents", "vocabulary", "idfScores", "embeddings"} {
		t.Run(field, func(t *testing.T) {
			var m map[string]json.RawMessage
			if err := json.Unmarshal(data, &m); err != nil {
				t.Fatalf("reparse: %v", err)
			}
			delete(m, field)
			partial, err := json.Marshal(m)
			if err != nil {
				t.Fatalf("re-marshal: %v", err)
			}
			if _, err := Unmarshal(partial); !errors.Is(err, domain.ErrMalformedIndex) {
				t.Errorf("expected ErrMalformedIndex without %q, got %v", field, err)
			}
		})
	}
}

func TestUnmarshal_InvalidJSON(t *testing.T) {
	if _, err := Unmarshal([]byte("{not json")); !errors.Is(err, domain.ErrMalformedIndex) {
		t.Fatalf("expected ErrMalformedIndex, got %v", err)
	}
}

func TestUnmarshal_DuplicateVocabularyTerm(t *testing.T) {
	raw := `{
		"version": "1",
		"documents": [],
		"vocabulary": [{"key":"user","value":0},{"key":"user","value":1}],
		"idfScores": [{"key":"user","value":1.0}],
		"embeddings": []
	}`
	if _, err := Unmarshal([]byte(raw)); !errors.Is(err, domain.ErrMalformedIndex) {
		t.Fatalf("expected ErrMalformedIndex, got %v", err)
	}
}

func TestUnmarshal_EmbeddingForUnknownDocument(t *testing.T) {
	raw := `{
		"version": "1",
		"documents": [],
		"vocabulary": [],
		"idfScores": [],
		"embeddings": [{"key":"ghost","value":[0.1]}]
	}`
	if _, err := Unmarshal([]byte(raw)); !errors.Is(err, domain.ErrMalformedIndex) {
		t.Fatalf("expected ErrMalformedIndex, got %v", err)
	}
}
