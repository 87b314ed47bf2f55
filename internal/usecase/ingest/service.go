// Package ingest rebuilds the product and review collections from the catalog files.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/catalog"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
)

const defaultEmbedBatch = 64

// Catalog is the parsed input of one ingestion run.
type Catalog struct {
	Products []catalog.Product
	Reviews  []catalog.ReviewGroup
}

// LoadProducts parses products.json.
func LoadProducts(path string) ([]catalog.Product, error) {
	return parseFile(path, catalog.ParseProducts)
}

// LoadCatalog parses products.json and product_reviews.json.
func LoadCatalog(productsPath, reviewsPath string) (Catalog, error) {
	products, err := LoadProducts(productsPath)
	if err != nil {
		return Catalog{}, err
	}
	reviews, err := parseFile(reviewsPath, catalog.ParseReviews)
	if err != nil {
		return Catalog{}, err
	}
	return Catalog{Products: products, Reviews: reviews}, nil
}

func parseFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return zero, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	v, err := parse(f)
	if err != nil {
		return zero, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// Vocabulary returns the filterable brands and categories of the catalog.
func (c Catalog) Vocabulary() catalog.Vocabulary {
	return catalog.BuildVocabulary(c.Products)
}

// CollectionReport describes the rebuild of one collection.
type CollectionReport struct {
	Name    collection.Name
	Records int
	Skipped int
	Written int
	Count   int
}

// Report summarizes an ingestion run.
type Report struct {
	RunID       string
	Collections []CollectionReport
	TotalTokens int
}

// ProgressFunc is called after every upserted chunk.
type ProgressFunc func(name collection.Name, done, total int)

// Service drops, re-embeds and reloads collections.
type Service struct {
	store      Store
	embed      domain.Embedder
	embedBatch int
	progress   ProgressFunc
	logger     *zap.Logger
}

// New creates an ingestion service. embed should carry the document instruction, if any.
func New(store Store, embed domain.Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, embed: embed, embedBatch: defaultEmbedBatch, logger: logger}
}

// WithEmbedBatch sets how many texts are embedded per provider call.
func (s *Service) WithEmbedBatch(n int) *Service {
	if n > 0 {
		s.embedBatch = n
	}
	return s
}

// WithProgress registers a progress callback.
func (s *Service) WithProgress(fn ProgressFunc) *Service {
	s.progress = fn
	return s
}

// Run rebuilds both collections. Products go first; reviews are enriched from them.
// Existing data is dropped even when the catalog is empty.
func (s *Service) Run(ctx context.Context, cat Catalog) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	log := s.logger.With(zap.String("run_id", report.RunID))

	products, skipped := catalog.ProductRecords(cat.Products)
	reviews, reviewSkips := catalog.ReviewRecords(cat.Reviews, cat.Products)

	plan := []struct {
		name    collection.Name
		records []document.Record
		skipped []catalog.Skip
	}{
		{collection.Products, products, skipped},
		{collection.Reviews, reviews, reviewSkips},
	}

	for _, p := range plan {
		for _, sk := range p.skipped {
			log.Warn("Skipping catalog entry",
				zap.String("collection", p.name.String()),
				zap.String("reason", sk.Reason),
			)
		}

		cr, tokens, err := s.rebuild(ctx, log, p.name, p.records)
		cr.Skipped = len(p.skipped)
		report.Collections = append(report.Collections, cr)
		report.TotalTokens += tokens
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (s *Service) rebuild(
	ctx context.Context, log *zap.Logger, name collection.Name, records []document.Record,
) (CollectionReport, int, error) {
	cr := CollectionReport{Name: name, Records: len(records)}

	if err := s.store.Reset(ctx, name); err != nil {
		return cr, 0, fmt.Errorf("reset %s: %w", name, err)
	}
	log.Info("Collection reset", zap.String("collection", name.String()))

	tokens := 0
	for start := 0; start < len(records); start += s.embedBatch {
		end := min(start+s.embedBatch, len(records))
		chunk := records[start:end]

		texts := make([]string, len(chunk))
		for i, r := range chunk {
			texts[i] = r.Text
		}
		res, err := domain.EmbedAll(ctx, s.embed, texts)
		if err != nil {
			return cr, tokens, fmt.Errorf("embed %s [%d:%d]: %w", name, start, end, err)
		}
		tokens += res.TotalTokens

		for i := range chunk {
			chunk[i].Vector = res.Embeddings[i]
		}

		n, err := s.store.Upsert(ctx, name, chunk)
		cr.Written += n
		if err != nil {
			return cr, tokens, fmt.Errorf("upsert %s: %w", name, err)
		}

		if s.progress != nil {
			s.progress(name, end, len(records))
		}
	}

	count, err := s.store.Count(ctx, name)
	if err != nil {
		return cr, tokens, fmt.Errorf("count %s: %w", name, err)
	}
	cr.Count = count

	log.Info("Collection rebuilt",
		zap.String("collection", name.String()),
		zap.Int("records", cr.Records),
		zap.Int("written", cr.Written),
		zap.Int("count", cr.Count),
		zap.Int("tokens", tokens),
	)
	return cr, tokens, nil
}
