package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kailas-cloud/prodrag/internal/db"
	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo runs filtered KNN queries against one collection index.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Query returns up to k records of the collection nearest to vector that satisfy pred.
// Distances are cosine distances, smaller is closer.
func (r *Repo) Query(
	ctx context.Context, coll collection.Name,
	vector []float32, k int, pred filter.Expression,
) ([]result.Item, error) {
	if k <= 0 {
		return []result.Item{}, nil
	}

	q := &db.KNNQuery{
		IndexName:    domain.IndexName(coll.String()),
		Filters:      pred,
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields(),
		RawScores:    true,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, coll)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStoreQuery, coll, err)
	}

	return toItems(sr, coll), nil
}

func returnFields() []string {
	schema := collection.Schema()
	fields := make([]string, 0, len(schema)+1)
	fields = append(fields, collection.FieldText)
	for _, f := range schema {
		fields = append(fields, f.Name())
	}
	return fields
}

func toItems(sr *db.SearchResult, coll collection.Name) []result.Item {
	prefix := domain.CollectionKeyPrefix(coll.String())
	items := make([]result.Item, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		id := strings.TrimPrefix(entry.Key, prefix)
		text := entry.Fields[collection.FieldText]

		meta := make(map[string]string, len(entry.Fields))
		for k, v := range entry.Fields {
			if k == collection.FieldText || k == collection.FieldVector {
				continue
			}
			meta[k] = v
		}
		// Undecodable metadata leaves the item without metadata; text and distance still count.
		md, err := document.DecodeHash(meta)
		if err != nil {
			md = nil
		}

		items = append(items, result.New(id, text, md, entry.Score))
	}
	return items
}
