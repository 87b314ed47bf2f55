package collection

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/kailas-cloud/prodrag/internal/db"
	"github.com/kailas-cloud/prodrag/internal/domain"
	domcol "github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
)

// DefaultBatchSize is the number of records written per pipeline.
const DefaultBatchSize = 500

// store is the consumer interface for collection maintenance (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
}

// HNSWConfig HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo creates, fills and counts collection indexes.
type Repo struct {
	store     store
	vectorDim int
	hnsw      HNSWConfig
	batchSize int
}

// New creates a collection repository.
func New(s store, vectorDim int) *Repo {
	return &Repo{
		store:     s,
		vectorDim: vectorDim,
		hnsw:      HNSWConfig{M: 16, EFConstruct: 200},
		batchSize: DefaultBatchSize,
	}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// WithBatchSize sets how many records go into one HSET pipeline.
func (r *Repo) WithBatchSize(n int) *Repo {
	if n > 0 {
		r.batchSize = n
	}
	return r
}

// Reset drops the collection index together with its documents and creates it empty.
func (r *Repo) Reset(ctx context.Context, name domcol.Name) error {
	idx := domain.IndexName(name.String())

	if err := r.store.DropIndex(ctx, idx, true); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", idx, err)
	}

	def, err := r.indexDefinition(name)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", idx, err)
	}
	return nil
}

// Exists reports whether the collection index is present.
func (r *Repo) Exists(ctx context.Context, name domcol.Name) (bool, error) {
	ok, err := r.store.IndexExists(ctx, domain.IndexName(name.String()))
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", name, err)
	}
	return ok, nil
}

// Upsert writes records in pipelined batches. Existing keys are overwritten.
func (r *Repo) Upsert(ctx context.Context, name domcol.Name, records []document.Record) (int, error) {
	written := 0
	for start := 0; start < len(records); start += r.batchSize {
		end := min(start+r.batchSize, len(records))

		items := make([]db.HashSetItem, 0, end-start)
		for _, rec := range records[start:end] {
			if err := rec.Validate(); err != nil {
				return written, err
			}
			if r.vectorDim > 0 && len(rec.Vector) != r.vectorDim {
				return written, fmt.Errorf("%w: record %s has %d, expected %d",
					domain.ErrVectorDimMismatch, rec.ID, len(rec.Vector), r.vectorDim)
			}
			items = append(items, db.HashSetItem{
				Key:    domain.RecordKey(name.String(), rec.ID),
				Fields: recordToHash(rec),
			})
		}

		if err := r.store.HSetMulti(ctx, items); err != nil {
			return written, fmt.Errorf("hset batch %d-%d: %w", start, end, err)
		}
		written += len(items)
	}
	return written, nil
}

// Count returns the number of indexed documents in the collection.
func (r *Repo) Count(ctx context.Context, name domcol.Name) (int, error) {
	n, err := r.store.SearchCount(ctx, domain.IndexName(name.String()), "*")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, name)
		}
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

func (r *Repo) indexDefinition(name domcol.Name) (*db.IndexDefinition, error) {
	return db.NewIndex(domain.IndexName(name.String())).
		Prefix(domain.CollectionKeyPrefix(name.String())).
		Schema(domcol.Schema()).
		VectorHNSW(domcol.FieldVector, r.vectorDim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
}

func recordToHash(rec document.Record) map[string]string {
	fields := rec.Metadata.Fields()
	fields[domcol.FieldText] = rec.Text
	fields[domcol.FieldVector] = vectorToBytes(rec.Vector)
	return fields
}

// vectorToBytes encodes float32s little-endian, the layout FT.CREATE VECTOR FLOAT32 expects.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
