package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/prodrag/internal/logger"
	"github.com/kailas-cloud/prodrag/internal/metrics"
	"github.com/kailas-cloud/prodrag/internal/usecase/extract"
)

// DefaultLimits caps results per collection.
var DefaultLimits = map[collection.Name]int{
	collection.Products: 5,
	collection.Reviews:  8,
}

// fallbackLimit applies to collections without a configured cap.
const fallbackLimit = 5

// Plan is the query understanding part of a search: what will be asked of which collections.
type Plan struct {
	Query         string
	EmbeddingText string
	Collections   collection.Set
	Extraction    extract.Result
}

// Predicate returns the metadata filter shared by all collections.
func (p Plan) Predicate() filter.Expression { return p.Extraction.Predicate }

// Response holds ranked items per routed collection.
type Response struct {
	Plan
	Results map[collection.Name][]result.Item
}

// Flatten returns all items in routed collection order.
func (r Response) Flatten() []result.Item {
	var out []result.Item
	for _, c := range r.Collections {
		out = append(out, r.Results[c]...)
	}
	return out
}

// Service is the retrieval orchestrator.
type Service struct {
	repo      Repository
	embed     Embedder
	extractor Extractor
	router    Router
	limits    map[collection.Name]int
	logger    *zap.Logger
}

// New creates a search service. Nil limits fall back to DefaultLimits.
func New(
	repo Repository, embed Embedder, extractor Extractor, router Router,
	limits map[collection.Name]int, logger *zap.Logger,
) *Service {
	if limits == nil {
		limits = DefaultLimits
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      repo,
		embed:     embed,
		extractor: extractor,
		router:    router,
		limits:    limits,
		logger:    logger,
	}
}

// LimitsFromConfig converts configured per-collection caps.
func LimitsFromConfig(m map[string]int) map[collection.Name]int {
	out := make(map[collection.Name]int, len(m))
	for k, v := range m {
		out[collection.Name(k)] = v
	}
	return out
}

// Explain computes routing and the predicate without touching the embedder or the store.
func (s *Service) Explain(query string) Plan {
	ext := s.extractor.Extract(query)
	text := ext.EmbeddingText
	if text == "" {
		text = query
	}
	return Plan{
		Query:         query,
		EmbeddingText: text,
		// routing sees the raw query, not the embedding text
		Collections: s.router.Route(query),
		Extraction:  ext,
	}
}

// Search routes the query, embeds it once and queries every target collection concurrently.
// Only an embedding failure fails the call; a failing collection yields an empty list.
func (s *Service) Search(ctx context.Context, query string) (Response, error) {
	plan := s.Explain(query)
	s.observePlan(plan)

	emb, err := s.embed.Embed(ctx, plan.EmbeddingText)
	if err != nil {
		return Response{}, fmt.Errorf("vectorize query: %w", err)
	}
	domain.UsageFromContext(ctx).AddTokens(emb.TotalTokens)

	lists := make([][]result.Item, len(plan.Collections))

	// Workers never return an error, so the group never cancels siblings.
	var g errgroup.Group
	for i, coll := range plan.Collections {
		g.Go(func() error {
			lists[i] = s.queryCollection(ctx, coll, emb.Embedding, plan.Predicate())
			return nil
		})
	}
	_ = g.Wait()

	resp := Response{Plan: plan, Results: make(map[collection.Name][]result.Item, len(plan.Collections))}
	for i, coll := range plan.Collections {
		resp.Results[coll] = lists[i]
	}

	logpkg.FromContextOr(ctx, s.logger).Debug("Search completed",
		zap.String("query", query),
		zap.Strings("collections", plan.Collections.Strings()),
		zap.String("predicate", plan.Predicate().Describe()),
	)
	return resp, nil
}

func (s *Service) queryCollection(
	ctx context.Context, coll collection.Name, vector []float32, pred filter.Expression,
) []result.Item {
	limit := s.limit(coll)
	start := time.Now()

	items, err := s.repo.Query(ctx, coll, vector, limit, pred)

	metrics.RetrievalQueryDuration.WithLabelValues(coll.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		reason := "query_error"
		if errors.Is(err, domain.ErrCollectionNotFound) {
			reason = "not_found"
		}
		metrics.RetrievalFailuresTotal.WithLabelValues(coll.String(), reason).Inc()
		logpkg.FromContextOr(ctx, s.logger).Error("Collection query failed",
			zap.String("collection", coll.String()),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return []result.Item{}
	}

	items = result.SortAndCap(items, limit)
	metrics.RetrievalResultsTotal.WithLabelValues(coll.String()).Add(float64(len(items)))
	return items
}

func (s *Service) limit(coll collection.Name) int {
	if l, ok := s.limits[coll]; ok {
		return l
	}
	return fallbackLimit
}

func (s *Service) observePlan(p Plan) {
	for _, c := range p.Collections {
		metrics.RoutingDecisionsTotal.WithLabelValues(c.String()).Inc()
	}
	ext := p.Extraction
	if n := len(ext.Price); n > 0 {
		metrics.FilterTermsTotal.WithLabelValues("price").Add(float64(n))
	}
	if ext.Brand != "" {
		metrics.FilterTermsTotal.WithLabelValues("brand").Inc()
	}
	if n := len(ext.Categories); n > 0 {
		metrics.FilterTermsTotal.WithLabelValues("category").Add(float64(n))
	}
}
