package domain

import "errors"

var (
	// ErrIndexNotReady signals a query against an engine with no built or loaded index.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrMalformedIndex signals a persisted index missing expected fields or
	// violating index invariants.
	ErrMalformedIndex = errors.New("malformed index")
	// ErrInvalidDocument signals a document record that cannot enter an index.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidQuery signals unusable search parameters.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
