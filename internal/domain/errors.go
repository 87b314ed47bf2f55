package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrCollectionNotFound signals a query against a collection the store does not know.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrStoreQuery signals a backend fault while querying a collection.
	ErrStoreQuery = errors.New("store query failed")
	// ErrInvalidRecord signals a document record that fails validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInvalidMetadata signals metadata that does not fit the product or review schema.
	ErrInvalidMetadata = errors.New("invalid metadata")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a chat completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
)
