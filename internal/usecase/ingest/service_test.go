package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
)

const productsJSON = `{
  "TitanPro Laptop": {
    "name": "TitanPro Laptop", "model_number": "TP-15", "brand": "Titan",
    "category": "Laptops", "price": 1299.99,
    "features": ["16GB RAM"], "description": "A fast laptop."
  },
  "SnapShot 300": {
    "name": "SnapShot 300", "model_number": "SS-300", "brand": "Snap",
    "category": "Cameras", "features": [], "description": "Compact camera."
  },
  "Nameless": {"name": "Nameless", "brand": "Titan", "category": ""}
}`

const reviewsJSON = `[
  {"model_number": "TP-15", "reviews": [
    {"review_id": "r1", "review": "Great screen.", "rating": 5},
    {"review_id": 17, "review": "Runs hot.", "rating": 2},
    {"review": "No id here.", "rating": 3}
  ]},
  {"model_number": "UNKNOWN", "reviews": [{"review_id": "x", "review": "?"}]}
]`

// --- Mocks ---

type mockStore struct {
	resets  []collection.Name
	upserts map[collection.Name][]document.Record
	resetFn func(name collection.Name) error
	upsert  func(name collection.Name, records []document.Record) (int, error)
}

func newMockStore() *mockStore {
	return &mockStore{upserts: map[collection.Name][]document.Record{}}
}

func (m *mockStore) Reset(_ context.Context, name collection.Name) error {
	m.resets = append(m.resets, name)
	if m.resetFn != nil {
		return m.resetFn(name)
	}
	return nil
}

func (m *mockStore) Upsert(_ context.Context, name collection.Name, records []document.Record) (int, error) {
	if m.upsert != nil {
		return m.upsert(name, records)
	}
	m.upserts[name] = append(m.upserts[name], records...)
	return len(records), nil
}

func (m *mockStore) Count(_ context.Context, name collection.Name) (int, error) {
	return len(m.upserts[name]), nil
}

type mockBatchEmbedder struct {
	batches [][]string
	err     error
}

func (m *mockBatchEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New("single embed must not be used")
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{float32(i), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs, TotalTokens: len(texts) * 3}, nil
}

func writeCatalog(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "products.json")
	r := filepath.Join(dir, "product_reviews.json")
	require.NoError(t, os.WriteFile(p, []byte(productsJSON), 0o600))
	require.NoError(t, os.WriteFile(r, []byte(reviewsJSON), 0o600))
	return p, r
}

func loadCatalog(t *testing.T) Catalog {
	t.Helper()
	cat, err := LoadCatalog(writeCatalog(t))
	require.NoError(t, err)
	return cat
}

// --- Tests ---

func TestLoadCatalog(t *testing.T) {
	cat := loadCatalog(t)
	assert.Len(t, cat.Products, 3)
	assert.Len(t, cat.Reviews, 2)

	v := cat.Vocabulary()
	assert.Equal(t, []string{"Snap", "Titan"}, v.Brands)
	assert.Equal(t, []string{"Cameras", "Laptops"}, v.Categories)
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.json"), "also-missing.json")
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRun_RebuildsBothCollections(t *testing.T) {
	store := newMockStore()
	emb := &mockBatchEmbedder{}
	var progress []int
	svc := New(store, emb, nil).WithProgress(func(_ collection.Name, done, _ int) {
		progress = append(progress, done)
	})

	report, err := svc.Run(context.Background(), loadCatalog(t))
	require.NoError(t, err)

	_, err = uuid.Parse(report.RunID)
	require.NoError(t, err)

	assert.Equal(t, []collection.Name{collection.Products, collection.Reviews}, store.resets)
	require.Len(t, report.Collections, 2)

	prod := report.Collections[0]
	assert.Equal(t, CollectionReport{Name: collection.Products, Records: 2, Skipped: 1, Written: 2, Count: 2}, prod)
	rev := report.Collections[1]
	assert.Equal(t, CollectionReport{Name: collection.Reviews, Records: 2, Skipped: 2, Written: 2, Count: 2}, rev)

	assert.Equal(t, 12, report.TotalTokens)
	assert.Equal(t, []int{2, 2}, progress)

	for _, rec := range store.upserts[collection.Products] {
		assert.NotEmpty(t, rec.Vector, rec.ID)
	}
	assert.Equal(t, "review-r1", store.upserts[collection.Reviews][0].ID)
	assert.Equal(t, "review-17", store.upserts[collection.Reviews][1].ID)
}

func TestRun_EmbedsInBatches(t *testing.T) {
	store := newMockStore()
	emb := &mockBatchEmbedder{}
	svc := New(store, emb, nil).WithEmbedBatch(1)

	_, err := svc.Run(context.Background(), loadCatalog(t))
	require.NoError(t, err)
	assert.Len(t, emb.batches, 4)
	for _, b := range emb.batches {
		assert.Len(t, b, 1)
	}
}

func TestRun_EmptyCatalogStillResets(t *testing.T) {
	store := newMockStore()
	emb := &mockBatchEmbedder{}

	report, err := New(store, emb, nil).Run(context.Background(), Catalog{})
	require.NoError(t, err)
	assert.Len(t, store.resets, 2)
	assert.Empty(t, emb.batches)
	assert.Zero(t, report.Collections[0].Count)
}

func TestRun_ResetError(t *testing.T) {
	store := newMockStore()
	store.resetFn = func(collection.Name) error { return errors.New("connection lost") }

	report, err := New(store, &mockBatchEmbedder{}, nil).Run(context.Background(), loadCatalog(t))
	require.ErrorContains(t, err, "reset products")
	assert.Len(t, report.Collections, 1)
	assert.Equal(t, []collection.Name{collection.Products}, store.resets, "reviews untouched after a failure")
}

func TestRun_EmbedError(t *testing.T) {
	store := newMockStore()
	emb := &mockBatchEmbedder{err: domain.ErrEmbeddingProviderError}

	_, err := New(store, emb, nil).Run(context.Background(), loadCatalog(t))
	require.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
	assert.Empty(t, store.upserts)
}

func TestRun_PartialUpsertReported(t *testing.T) {
	store := newMockStore()
	store.upsert = func(_ collection.Name, records []document.Record) (int, error) {
		return len(records) - 1, errors.New("pipeline broken")
	}

	report, err := New(store, &mockBatchEmbedder{}, nil).Run(context.Background(), loadCatalog(t))
	require.ErrorContains(t, err, "upsert products")
	assert.Equal(t, 1, report.Collections[0].Written)
}

func TestRun_EmptyReviewTextSkipped(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "products.json")
	r := filepath.Join(dir, "product_reviews.json")
	require.NoError(t, os.WriteFile(p, []byte(productsJSON), 0o600))
	require.NoError(t, os.WriteFile(r, []byte(`[
  {"model_number": "TP-15", "reviews": [
    {"review_id": "r1", "review": "", "rating": 4},
    {"review_id": "r2", "review": "Solid build.", "rating": 4.5}
  ]}
]`), 0o600))
	cat, err := LoadCatalog(p, r)
	require.NoError(t, err)

	store := newMockStore()
	store.upsert = func(name collection.Name, records []document.Record) (int, error) {
		for i, rec := range records {
			if err := rec.Validate(); err != nil {
				return i, err
			}
		}
		store.upserts[name] = append(store.upserts[name], records...)
		return len(records), nil
	}

	report, err := New(store, &mockBatchEmbedder{}, nil).Run(context.Background(), cat)
	require.NoError(t, err)

	rev := report.Collections[1]
	assert.Equal(t, CollectionReport{Name: collection.Reviews, Records: 1, Skipped: 1, Written: 1, Count: 1}, rev)
	require.Len(t, store.upserts[collection.Reviews], 1)
	got := store.upserts[collection.Reviews][0]
	assert.Equal(t, "review-r2", got.ID)
	rm, ok := got.Metadata.(document.ReviewMetadata)
	require.True(t, ok)
	require.NotNil(t, rm.Rating)
	assert.InDelta(t, 4.5, *rm.Rating, 1e-9)
}
