package search

import (
	"fmt"

	"github.com/docdex/docdex/internal/domain"
	"github.com/docdex/docdex/internal/domain/document"
)

// Search parameter defaults and limits.
const (
	DefaultLimit     = 10
	DefaultThreshold = 0.1
	MaxLimit         = 100

	// relatedThreshold is the low score floor used by FindRelated.
	relatedThreshold = 0.05
	// denseFloor is the acceptance floor of the supplementary dense-only pass.
	denseFloor = 0.3
	// maxRerankCandidates caps how many results are sent to the oracle.
	maxRerankCandidates = 30
	// rerankContentChars is how much content each rerank candidate carries.
	rerankContentChars = 200

	// DefaultSuggestions is the suggestion count when the caller passes none.
	DefaultSuggestions = 5
)

// Options configures a search call. The zero value is usable: a zero Limit
// falls back to DefaultLimit, and a zero Threshold genuinely means "no score
// floor" (DefaultOptions carries the 0.1 default for callers that want it).
type Options struct {
	Limit     int
	Threshold float64
	Types     []document.Type
	Tags      []string
	AIRerank  bool
}

// DefaultOptions returns the documented defaults: limit 10, threshold 0.1.
func DefaultOptions() Options {
	return Options{Limit: DefaultLimit, Threshold: DefaultThreshold}
}

// normalized validates and fills in option defaults.
func (o Options) normalized() (Options, error) {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Threshold < 0 || o.Threshold > 1 {
		return Options{}, fmt.Errorf("%w: threshold must be between 0 and 1", domain.ErrInvalidQuery)
	}
	for _, t := range o.Types {
		if !t.IsValid() {
			return Options{}, fmt.Errorf("%w: unknown document type %q", domain.ErrInvalidQuery, t)
		}
	}
	return o, nil
}
