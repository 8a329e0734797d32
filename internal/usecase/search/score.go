package search

import (
	"math"
	"strings"

	"github.com/docdex/docdex/internal/index"
)

// Blend weights. Dense similarity gets meaningful weight only when vectors are
// actually available for the candidate set, so mixing embedded and
// non-embedded corpora does not zero out relevant lexical matches.
const (
	lexicalWeightDense = 0.5
	titleWeightDense   = 0.2
	denseWeight        = 0.3

	lexicalWeightLexOnly = 0.7
	titleWeightLexOnly   = 0.3
)

// cosineWeights computes cosine similarity between two weighted term vectors
// with precomputed norms. A zero vector against anything is 0, not NaN.
func cosineWeights(a, b map[string]float64, aNorm, bNorm float64) float64 {
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for t, w := range a {
		dot += w * b[t]
	}
	return dot / (aNorm * bNorm)
}

// cosineVectors computes cosine similarity between two dense vectors. Returns
// 0 for zero vectors or mismatched dimensions.
func cosineVectors(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, aSq, bSq float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		aSq += float64(a[i]) * float64(a[i])
		bSq += float64(b[i]) * float64(b[i])
	}
	if aSq == 0 || bSq == 0 {
		return 0
	}
	return dot / (math.Sqrt(aSq) * math.Sqrt(bSq))
}

// titleBoost scores how strongly the query matches the title: 1 when the
// literal query occurs in the title (case-insensitive), otherwise the
// fraction of query tokens that substring-match some title token in either
// direction. 0 when either side tokenizes to nothing.
func titleBoost(query string, queryTokens []string, title string) float64 {
	titleTokens := index.Tokenize(title)
	if len(queryTokens) == 0 || len(titleTokens) == 0 {
		return 0
	}

	if strings.Contains(strings.ToLower(title), strings.ToLower(strings.TrimSpace(query))) {
		return 1
	}

	matched := 0
	for _, q := range queryTokens {
		for _, t := range titleTokens {
			if strings.Contains(t, q) || strings.Contains(q, t) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

// blendScore combines the three similarity signals into one ranking score.
func blendScore(lexical, boost, dense float64, hasDense bool) float64 {
	if hasDense {
		return lexicalWeightDense*lexical + titleWeightDense*boost + denseWeight*dense
	}
	return lexicalWeightLexOnly*lexical + titleWeightLexOnly*boost
}
