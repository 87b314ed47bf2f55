package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/prodrag/internal/config"
	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/catalog"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/prodrag/internal/logger"
	"github.com/kailas-cloud/prodrag/internal/metrics"
	"github.com/kailas-cloud/prodrag/internal/usecase/extract"
	"github.com/kailas-cloud/prodrag/internal/usecase/routing"
)

func TestMain(m *testing.M) {
	metrics.RegisterRetrievalMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type queryCall struct {
	coll collection.Name
	k    int
	pred filter.Expression
}

type mockRepo struct {
	mu    sync.Mutex
	items map[collection.Name][]result.Item
	errs  map[collection.Name]error
	calls []queryCall
}

func (m *mockRepo) Query(
	_ context.Context, coll collection.Name,
	_ []float32, k int, pred filter.Expression,
) ([]result.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, queryCall{coll: coll, k: k, pred: pred})
	if err := m.errs[coll]; err != nil {
		return nil, err
	}
	return append([]result.Item(nil), m.items[coll]...), nil
}

type mockEmbedder struct {
	texts []string
	err   error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.texts = append(m.texts, text)
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 4}, nil
}

func items(prefix string, distances ...float64) []result.Item {
	out := make([]result.Item, len(distances))
	for i, d := range distances {
		out[i] = result.New(fmt.Sprintf("%s-%d", prefix, i), "text", nil, d)
	}
	return out
}

func newTestService(t *testing.T, repo *mockRepo, emb *mockEmbedder) *Service {
	t.Helper()
	return newLoggedTestService(t, repo, emb, nil)
}

func newLoggedTestService(t *testing.T, repo *mockRepo, emb *mockEmbedder, logger *zap.Logger) *Service {
	t.Helper()
	lex, err := config.LoadLexicon("../../../config/lexicon.yaml")
	require.NoError(t, err)
	vocab := catalog.Vocabulary{
		Brands:     []string{"Sony", "Apple"},
		Categories: []string{"Audio", "Laptops"},
	}
	return New(repo, emb, extract.New(lex, vocab), routing.New(lex.Routing), nil, logger)
}

// --- Search ---

func TestSearch_BothCollections(t *testing.T) {
	repo := &mockRepo{items: map[collection.Name][]result.Item{
		collection.Products: items("product", 0.3, 0.1, 0.2),
		collection.Reviews:  items("review", 0.5, 0.4),
	}}
	emb := &mockEmbedder{}
	svc := newTestService(t, repo, emb)

	resp, err := svc.Search(context.Background(), "Gaming laptops")
	require.NoError(t, err)

	assert.Equal(t, collection.Set{collection.Products, collection.Reviews}, resp.Collections)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, []string{"Gaming laptops"}, emb.texts, "one embedding call with the raw query")

	prods := resp.Results[collection.Products]
	require.Len(t, prods, 3)
	assert.Equal(t, "product-1", prods[0].ID())
	for i := 1; i < len(prods); i++ {
		assert.LessOrEqual(t, prods[i-1].Distance(), prods[i].Distance())
	}
	assert.Len(t, resp.Flatten(), 5)
}

func TestSearch_CapsPerCollection(t *testing.T) {
	repo := &mockRepo{items: map[collection.Name][]result.Item{
		collection.Products: items("product", 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3),
		collection.Reviews:  items("review", 0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0.05),
	}}
	svc := newTestService(t, repo, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "anything at all")
	require.NoError(t, err)

	assert.Len(t, resp.Results[collection.Products], 5)
	assert.Len(t, resp.Results[collection.Reviews], 8)
	assert.Equal(t, 0.05, resp.Results[collection.Reviews][0].Distance())

	ks := map[collection.Name]int{}
	for _, c := range repo.calls {
		ks[c.coll] = c.k
	}
	assert.Equal(t, map[collection.Name]int{collection.Products: 5, collection.Reviews: 8}, ks)
}

func TestSearch_FailedCollectionIsolated(t *testing.T) {
	repo := &mockRepo{
		items: map[collection.Name][]result.Item{collection.Products: items("product", 0.1, 0.2)},
		errs:  map[collection.Name]error{collection.Reviews: fmt.Errorf("%w: reviews", domain.ErrCollectionNotFound)},
	}
	svc := newTestService(t, repo, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "headphones")
	require.NoError(t, err)

	require.Contains(t, resp.Results, collection.Reviews)
	assert.Empty(t, resp.Results[collection.Reviews])
	assert.NotNil(t, resp.Results[collection.Reviews])
	assert.Len(t, resp.Results[collection.Products], 2)
}

func TestSearch_FailureLoggedWithRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	repo := &mockRepo{
		errs: map[collection.Name]error{collection.Reviews: fmt.Errorf("%w: reviews", domain.ErrCollectionNotFound)},
	}
	svc := newLoggedTestService(t, repo, &mockEmbedder{}, zap.NewNop())

	ctx := logpkg.ContextWithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "req-1")))
	_, err := svc.Search(ctx, "customer reviews")
	require.NoError(t, err)

	failures := logs.FilterMessage("Collection query failed").All()
	require.Len(t, failures, 1)
	fields := failures[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "reviews", fields["collection"])
	assert.Equal(t, "not_found", fields["reason"])
	assert.Contains(t, fields["error"], "reviews")
}

func TestSearch_FailureLoggedWithServiceLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	repo := &mockRepo{
		errs: map[collection.Name]error{collection.Products: fmt.Errorf("%w: boom", domain.ErrStoreQuery)},
	}
	svc := newLoggedTestService(t, repo, &mockEmbedder{}, zap.New(core))

	_, err := svc.Search(context.Background(), "what specs")
	require.NoError(t, err)

	failures := logs.FilterMessage("Collection query failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, "query_error", failures[0].ContextMap()["reason"])
}

func TestSearch_BackendErrorIsolated(t *testing.T) {
	repo := &mockRepo{
		items: map[collection.Name][]result.Item{collection.Reviews: items("review", 0.1)},
		errs:  map[collection.Name]error{collection.Products: fmt.Errorf("%w: boom", domain.ErrStoreQuery)},
	}
	svc := newTestService(t, repo, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "hello")
	require.NoError(t, err)
	assert.Empty(t, resp.Results[collection.Products])
	assert.Len(t, resp.Results[collection.Reviews], 1)
}

func TestSearch_EmbeddingFailureIsFatal(t *testing.T) {
	repo := &mockRepo{}
	emb := &mockEmbedder{err: domain.ErrEmbeddingProviderError}
	svc := newTestService(t, repo, emb)

	_, err := svc.Search(context.Background(), "headphones")
	require.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
	assert.Empty(t, repo.calls, "no collection is queried without a vector")
}

func TestSearch_EmptyQueryStillEmbeds(t *testing.T) {
	emb := &mockEmbedder{}
	svc := newTestService(t, &mockRepo{}, emb)

	resp, err := svc.Search(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{""}, emb.texts)
	assert.Len(t, resp.Results, 2)
}

func TestSearch_RoutesOnRawQuery(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo, &mockEmbedder{})

	resp, err := svc.Search(context.Background(), "Any feedback on the Sony headphones?")
	require.NoError(t, err)

	assert.Equal(t, collection.Set{collection.Reviews}, resp.Collections)
	require.Len(t, repo.calls, 1)
	assert.Equal(t, collection.Reviews, repo.calls[0].coll)
	assert.Equal(t, "brand = Sony OR category = Audio", repo.calls[0].pred.Describe())
}

func TestSearch_SharedPredicate(t *testing.T) {
	repo := &mockRepo{}
	svc := newTestService(t, repo, &mockEmbedder{})

	_, err := svc.Search(context.Background(), "something under $300")
	require.NoError(t, err)

	require.Len(t, repo.calls, 2)
	for _, c := range repo.calls {
		assert.Equal(t, "price < 300", c.pred.Describe())
	}
}

func TestSearch_RecordsUsage(t *testing.T) {
	svc := newTestService(t, &mockRepo{}, &mockEmbedder{})

	ctx, usage := domain.NewContextWithUsage(context.Background())
	_, err := svc.Search(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, 4, usage.TotalTokens)
	assert.True(t, usage.Used)
}

func TestSearch_Idempotent(t *testing.T) {
	repo := &mockRepo{items: map[collection.Name][]result.Item{
		collection.Products: items("product", 0.2, 0.1),
		collection.Reviews:  items("review", 0.3),
	}}
	svc := newTestService(t, repo, &mockEmbedder{})

	a, err := svc.Search(context.Background(), "sony under $100")
	require.NoError(t, err)
	b, err := svc.Search(context.Background(), "sony under $100")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSearch_CustomLimits(t *testing.T) {
	repo := &mockRepo{items: map[collection.Name][]result.Item{
		collection.Products: items("product", 0.1, 0.2, 0.3),
	}}
	lex, err := config.LoadLexicon("../../../config/lexicon.yaml")
	require.NoError(t, err)
	svc := New(repo, &mockEmbedder{}, extract.New(lex, catalog.Vocabulary{}), routing.New(lex.Routing),
		LimitsFromConfig(map[string]int{"products": 2, "reviews": 1}), nil)

	resp, err := svc.Search(context.Background(), "what specs")
	require.NoError(t, err)
	assert.Len(t, resp.Results[collection.Products], 2)
}

// --- Explain ---

func TestExplain_DoesNotTouchBackends(t *testing.T) {
	repo := &mockRepo{errs: map[collection.Name]error{collection.Products: errors.New("must not be called")}}
	emb := &mockEmbedder{}
	svc := newTestService(t, repo, emb)

	plan := svc.Explain("What laptops do you have under $1000?")
	assert.Equal(t, collection.Set{collection.Products}, plan.Collections)
	assert.Equal(t, "price < 1000 OR category = Laptops", plan.Predicate().Describe())
	assert.Equal(t, "What laptops do you have under $1000?", plan.EmbeddingText)
	assert.Empty(t, repo.calls)
	assert.Empty(t, emb.texts)
}
