// Package opensearch is the OpenSearch k-NN backend for product and review collections.
// It offers the same collection operations as the Redis repositories so the
// service can run on either store.
package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"

	"github.com/kailas-cloud/prodrag/internal/domain"
	domcol "github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
)

// DefaultBatchSize is the number of documents per bulk request.
const DefaultBatchSize = 500

// Config holds OpenSearch connection settings.
type Config struct {
	Addresses   []string
	Username    string
	Password    string
	InsecureSSL bool
	VectorDim   int
	HNSWM       int
	EFConstruct int
	BatchSize   int
}

// Store implements collection search and maintenance on OpenSearch.
type Store struct {
	client    *opensearchapi.Client
	vectorDim int
	m         int
	efc       int
	batchSize int
}

// New connects an OpenSearch client. No request is made until first use.
func New(cfg Config) (*Store, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSSL {
		//nolint:gosec // opt-in for self-signed dev clusters
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch client: %w", err)
	}

	s := &Store{
		client:    client,
		vectorDim: cfg.VectorDim,
		m:         cfg.HNSWM,
		efc:       cfg.EFConstruct,
		batchSize: cfg.BatchSize,
	}
	if s.m <= 0 {
		s.m = 16
	}
	if s.efc <= 0 {
		s.efc = 200
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	return s, nil
}

// IndexName maps a collection to an OpenSearch index. Index names may not contain ':'.
func IndexName(coll domcol.Name) string {
	return strings.TrimSuffix(domain.KeyPrefix, ":") + "-" + coll.String()
}

// Ping checks cluster connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("opensearch ping: %w", err)
	}
	return nil
}

// Query returns up to k documents nearest to vector that satisfy pred, as cosine distances.
func (s *Store) Query(
	ctx context.Context, coll domcol.Name,
	vector []float32, k int, pred filter.Expression,
) ([]result.Item, error) {
	if k <= 0 {
		return []result.Item{}, nil
	}

	body, err := json.Marshal(knnQuery(vector, k, pred))
	if err != nil {
		return nil, fmt.Errorf("marshal query: %w", err)
	}

	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{IndexName(coll)},
		Body:    bytes.NewReader(body),
	})
	if err != nil {
		if isIndexNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, coll)
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStoreQuery, coll, err)
	}

	items := make([]result.Item, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		var src map[string]any
		if err := json.Unmarshal(hit.Source, &src); err != nil {
			continue
		}
		text, _ := src[domcol.FieldText].(string)
		delete(src, domcol.FieldText)
		delete(src, domcol.FieldVector)

		md, err := document.DecodeMetadata(src)
		if err != nil {
			md = nil
		}
		items = append(items, result.New(hit.ID, text, md, scoreToDistance(hit.Score)))
	}
	return items, nil
}

// Reset deletes the collection index if present and recreates it empty.
func (s *Store) Reset(ctx context.Context, coll domcol.Name) error {
	idx := IndexName(coll)

	_, err := s.client.Indices.Delete(ctx, opensearchapi.IndicesDeleteReq{Indices: []string{idx}})
	if err != nil && !isIndexNotFound(err) {
		return fmt.Errorf("delete index %s: %w", idx, err)
	}

	body, err := json.Marshal(indexMapping(s.vectorDim, s.m, s.efc))
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	if _, err := s.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: idx,
		Body:  bytes.NewReader(body),
	}); err != nil {
		return fmt.Errorf("create index %s: %w", idx, err)
	}
	return nil
}

// Exists reports whether the collection index is present.
func (s *Store) Exists(ctx context.Context, coll domcol.Name) (bool, error) {
	resp, err := s.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{IndexName(coll)}})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", coll, err)
	}
	return true, nil
}

// Upsert bulk-indexes records by id in batches and refreshes the index after each batch.
func (s *Store) Upsert(ctx context.Context, coll domcol.Name, records []document.Record) (int, error) {
	idx := IndexName(coll)
	written := 0

	for start := 0; start < len(records); start += s.batchSize {
		end := min(start+s.batchSize, len(records))

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		for _, rec := range records[start:end] {
			if err := rec.Validate(); err != nil {
				return written, err
			}
			if err := domain.CheckDimensions(rec.Vector, s.vectorDim); err != nil {
				return written, fmt.Errorf("record %s: %w", rec.ID, err)
			}
			action := map[string]any{"index": map[string]any{"_index": idx, "_id": rec.ID}}
			if err := enc.Encode(action); err != nil {
				return written, fmt.Errorf("encode action: %w", err)
			}
			if err := enc.Encode(recordSource(rec)); err != nil {
				return written, fmt.Errorf("encode %s: %w", rec.ID, err)
			}
		}

		resp, err := s.client.Bulk(ctx, opensearchapi.BulkReq{
			Body:   &buf,
			Params: opensearchapi.BulkParams{Refresh: "true"},
		})
		if err != nil {
			return written, fmt.Errorf("bulk %d-%d: %w", start, end, err)
		}
		if resp.Errors {
			return written, fmt.Errorf("bulk %d-%d: %w", start, end, firstBulkError(resp))
		}
		written += end - start
	}
	return written, nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context, coll domcol.Name) (int, error) {
	resp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{IndexName(coll)},
		Body:    strings.NewReader(`{"query":{"match_all":{}}}`),
		Params: opensearchapi.SearchParams{
			Size:           opensearchapi.ToPointer(0),
			TrackTotalHits: true,
		},
	})
	if err != nil {
		if isIndexNotFound(err) {
			return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, coll)
		}
		return 0, fmt.Errorf("count %s: %w", coll, err)
	}
	return resp.Hits.Total.Value, nil
}

// scoreToDistance inverts the lucene cosinesimil score (2 - d) / 2 back to cosine distance.
func scoreToDistance(score float32) float64 {
	return 2 - 2*float64(score)
}

func recordSource(rec document.Record) map[string]any {
	src := make(map[string]any, 10)
	for k, v := range rec.Metadata.Fields() {
		src[k] = v
	}
	switch md := rec.Metadata.(type) {
	case document.ProductMetadata:
		if md.Price != nil {
			src[domcol.FieldPrice] = *md.Price
		}
	case document.ReviewMetadata:
		if md.Rating != nil {
			src[domcol.FieldRating] = *md.Rating
		}
	}
	src[domcol.FieldText] = rec.Text
	src[domcol.FieldVector] = rec.Vector
	return src
}

func firstBulkError(resp *opensearchapi.BulkResp) error {
	for _, item := range resp.Items {
		for _, r := range item {
			if r.Error != nil {
				return fmt.Errorf("%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
			}
		}
	}
	return errors.New("bulk request reported errors")
}

func isIndexNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "index_not_found_exception")
}
