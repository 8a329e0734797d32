package search

import (
	"context"
)

// Candidate is the bounded view of a result handed to the reranking oracle.
type Candidate struct {
	Title   string
	Content string
}

// Reranker is the chat-style relevance oracle. Given a query and an
// enumerated candidate list it returns candidate indices in relevance order.
// Implementations surface transport and parse failures as errors; the service
// treats any failure as "keep the current order".
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]int, error)
}
