package search

import (
	"context"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
	"github.com/kailas-cloud/prodrag/internal/usecase/extract"
)

// Repository runs a nearest-neighbor query against one collection.
// It fails with domain.ErrCollectionNotFound or domain.ErrStoreQuery.
type Repository interface {
	Query(
		ctx context.Context, coll collection.Name,
		vector []float32, k int, pred filter.Expression,
	) ([]result.Item, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Extractor derives a predicate from the query text.
type Extractor interface {
	Extract(query string) extract.Result
}

// Router picks the target collections.
type Router interface {
	Route(query string) collection.Set
}
