package search

import (
	"math"
	"strings"
	"testing"

	"github.com/docdex/docdex/internal/index"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= eps
}

func TestCosineWeights(t *testing.T) {
	a := map[string]float64{"user": 1.0, "token": 2.0}
	b := map[string]float64{"user": 2.0, "token": 4.0}
	aNorm := math.Sqrt(5)
	bNorm := math.Sqrt(20)

	if got := cosineWeights(a, a, aNorm, aNorm); !almostEqual(got, 1) {
		t.Errorf("cos(a, a) = %v, want 1", got)
	}
	// Parallel vectors score 1 regardless of magnitude.
	if got := cosineWeights(a, b, aNorm, bNorm); !almostEqual(got, 1) {
		t.Errorf("cos(a, 2a) = %v, want 1", got)
	}
	// Symmetric.
	c := map[string]float64{"user": 1.0, "session": 3.0}
	cNorm := math.Sqrt(10)
	if got, rev := cosineWeights(a, c, aNorm, cNorm), cosineWeights(c, a, cNorm, aNorm); !almostEqual(got, rev) {
		t.Errorf("cosine not symmetric: %v vs %v", got, rev)
	}
	// Disjoint vectors score 0.
	d := map[string]float64{"products": 1.0}
	if got := cosineWeights(a, d, aNorm, 1); got != 0 {
		t.Errorf("cos of disjoint vectors = %v, want 0", got)
	}
	// Zero norm never divides.
	if got := cosineWeights(nil, a, 0, aNorm); got != 0 {
		t.Errorf("cos with zero vector = %v, want 0", got)
	}
}

func TestCosineVectors(t *testing.T) {
	a := []float32{1, 0, 2}
	if got := cosineVectors(a, a); !almostEqual(got, 1) {
		t.Errorf("cos(a, a) = %v, want 1", got)
	}
	if got := cosineVectors(a, []float32{0, 1, 0}); got != 0 {
		t.Errorf("orthogonal vectors = %v, want 0", got)
	}
	if got := cosineVectors(a, []float32{1, 0}); got != 0 {
		t.Errorf("mismatched dimensions = %v, want 0", got)
	}
	if got := cosineVectors([]float32{0, 0}, []float32{0, 0}); got != 0 {
		t.Errorf("zero vectors = %v, want 0", got)
	}
	// Bounded.
	b := []float32{-1, 3, 0.5}
	got := cosineVectors(a, b)
	if got < -1-eps || got > 1+eps {
		t.Errorf("cosine out of [-1, 1]: %v", got)
	}
}

func TestTitleBoost(t *testing.T) {
	tests := []struct {
		name  string
		query string
		title string
		want  float64
	}{
		{"literal substring", "user login", "User Login Endpoint", 1},
		{"case insensitive literal", "USER LOGIN", "user login", 1},
		{"half tokens match", "user token", "User Login", 0.5},
		{"token substring either direction", "authentication", "auth service", 1},
		{"no overlap", "payment gateway", "User Login", 0},
		{"empty title", "user", "", 0},
		{"stop-word-only query", "the of", "User Login", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := titleBoost(tt.query, index.Tokenize(tt.query), tt.title)
			if !almostEqual(got, tt.want) {
				t.Errorf("titleBoost(%q, %q) = %v, want %v", tt.query, tt.title, got, tt.want)
			}
		})
	}
}

func TestBlendScore(t *testing.T) {
	if got := blendScore(1, 1, 0, false); !almostEqual(got, 1) {
		t.Errorf("lexical-only perfect score = %v, want 1", got)
	}
	if got := blendScore(1, 1, 1, true); !almostEqual(got, 1) {
		t.Errorf("dense perfect score = %v, want 1", got)
	}
	if got := blendScore(0.5, 0.5, 0.9, false); !almostEqual(got, 0.7*0.5+0.3*0.5) {
		t.Errorf("dense component must be ignored without vectors: %v", got)
	}
	if got := blendScore(0.5, 0.5, 0.9, true); !almostEqual(got, 0.5*0.5+0.2*0.5+0.3*0.9) {
		t.Errorf("dense blend = %v", got)
	}
}

// Full lexical pipeline over a tiny corpus with hand-computed expectations.
func TestLexicalScoring_ThreeDocuments(t *testing.T) {
	idx := testIndex(t, nil)

	queryTokens := index.Tokenize("user token")
	qw := idx.Weights(queryTokens)
	qNorm := index.Norm(qw)

	lexA := cosineWeights(qw, idx.DocWeights(0), qNorm, idx.DocNorm(0))
	lexB := cosineWeights(qw, idx.DocWeights(1), qNorm, idx.DocNorm(1))
	lexC := cosineWeights(qw, idx.DocWeights(2), qNorm, idx.DocNorm(2))

	if !almostEqual(lexA, 0.6897802931382524) {
		t.Errorf("lexical(a) = %.16f, want 0.6897802931382524", lexA)
	}
	if !almostEqual(lexB, 0.5275327514657516) {
		t.Errorf("lexical(b) = %.16f, want 0.5275327514657516", lexB)
	}
	if lexC != 0 {
		t.Errorf("lexical(c) = %v, want 0", lexC)
	}

	scoreA := blendScore(lexA, titleBoost("user token", queryTokens, "User Login"), 0, false)
	scoreB := blendScore(lexB, titleBoost("user token", queryTokens, "User Logout"), 0, false)

	if !almostEqual(scoreA, 0.6328462051967766) {
		t.Errorf("score(a) = %.16f, want 0.6328462051967766", scoreA)
	}
	if !almostEqual(scoreB, 0.5192729260260261) {
		t.Errorf("score(b) = %.16f, want 0.5192729260260261", scoreB)
	}
	if !(scoreA > scoreB) {
		t.Error("login endpoint should outrank logout for query \"user token\"")
	}
}

func TestExtractHighlights(t *testing.T) {
	tokens := index.Tokenize("user token")
	hs := extractHighlights(tokens, "User Login", "Authenticates a user and returns a token")

	if len(hs) != 2 {
		t.Fatalf("expected title and content highlights, got %d", len(hs))
	}
	if hs[0].Field != FieldTitle || hs[1].Field != FieldContent {
		t.Fatalf("field order = %q, %q", hs[0].Field, hs[1].Field)
	}
	if len(hs[0].Positions) != 1 || hs[0].Positions[0] != (Span{Start: 0, End: 4}) {
		t.Errorf("title positions = %v", hs[0].Positions)
	}
	// Two terms in content: "user" at 16, "token" at 35.
	wantContent := []Span{{Start: 16, End: 20}, {Start: 35, End: 40}}
	if len(hs[1].Positions) != 2 || hs[1].Positions[0] != wantContent[0] || hs[1].Positions[1] != wantContent[1] {
		t.Errorf("content positions = %v, want %v", hs[1].Positions, wantContent)
	}
}

func TestExtractHighlights_NoMatch(t *testing.T) {
	tokens := index.Tokenize("payment")
	if hs := extractHighlights(tokens, "User Login", "Authenticates a user"); hs != nil {
		t.Errorf("expected no highlights, got %v", hs)
	}
}

func TestSnippetAround(t *testing.T) {
	short := "a user walks in"
	if got := snippetAround(short, 2); got != short {
		t.Errorf("short text should not be ellipsized: %q", got)
	}

	long := strings.Repeat("x", 100) + "MATCH" + strings.Repeat("x", 200)
	got := snippetAround(long, 100)
	if !strings.HasPrefix(got, ellipsis) {
		t.Errorf("snippet missing leading ellipsis: %q", got)
	}
	if !strings.HasSuffix(got, ellipsis) {
		t.Errorf("snippet missing trailing ellipsis: %q", got)
	}
	// 40 before + 120 after + both ellipses.
	if want := snippetBefore + snippetAfter + 2*len(ellipsis); len(got) != want {
		t.Errorf("snippet length = %d, want %d", len(got), want)
	}
}
