package ingest

import (
	"context"

	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
)

// Store rebuilds and fills a collection. Implemented by the Redis collection
// repository and by the OpenSearch store.
type Store interface {
	Reset(ctx context.Context, name collection.Name) error
	Upsert(ctx context.Context, name collection.Name, records []document.Record) (int, error)
	Count(ctx context.Context, name collection.Name) (int, error)
}
