package health

import (
	"context"

	"github.com/kailas-cloud/prodrag/internal/domain/collection"
)

// StorePinger checks vector store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// CollectionChecker reports whether a collection index has been built.
type CollectionChecker interface {
	Exists(ctx context.Context, name collection.Name) (bool, error)
}
