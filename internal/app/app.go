// Package app wires configuration into the retrieval, ingestion and chat services.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/prodrag/internal/config"
	dbRedis "github.com/kailas-cloud/prodrag/internal/db/redis"
	"github.com/kailas-cloud/prodrag/internal/domain"
	"github.com/kailas-cloud/prodrag/internal/domain/catalog"
	"github.com/kailas-cloud/prodrag/internal/domain/collection"
	"github.com/kailas-cloud/prodrag/internal/domain/document"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
	"github.com/kailas-cloud/prodrag/internal/domain/search/result"
	"github.com/kailas-cloud/prodrag/internal/metrics"
	collectionrepo "github.com/kailas-cloud/prodrag/internal/repository/collection"
	"github.com/kailas-cloud/prodrag/internal/repository/embcache"
	osrepo "github.com/kailas-cloud/prodrag/internal/repository/opensearch"
	searchrepo "github.com/kailas-cloud/prodrag/internal/repository/search"
	openaiTransport "github.com/kailas-cloud/prodrag/internal/transport/openai"
	chatuc "github.com/kailas-cloud/prodrag/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/prodrag/internal/usecase/embedding"
	"github.com/kailas-cloud/prodrag/internal/usecase/extract"
	healthuc "github.com/kailas-cloud/prodrag/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/prodrag/internal/usecase/ingest"
	"github.com/kailas-cloud/prodrag/internal/usecase/routing"
	searchuc "github.com/kailas-cloud/prodrag/internal/usecase/search"
)

// Backend is a vector store able to serve queries and rebuild collections.
type Backend interface {
	ingestuc.Store
	searchuc.Repository
	Ping(ctx context.Context) error
	Exists(ctx context.Context, name collection.Name) (bool, error)
}

// App holds the wired services. Build it with New and release it with Close.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Backend Backend

	Search *searchuc.Service
	Ingest *ingestuc.Service
	// Chat is nil when chat.enabled is false.
	Chat   *chatuc.Service
	Health *healthuc.Service

	closers []func()
}

// New connects the configured backend and builds all services.
// A missing lexicon is fatal; a missing vocabulary only disables brand and category filters.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()

	a := &App{Config: cfg, Logger: logger}

	lex, err := config.LoadLexicon(cfg.Retrieval.LexiconPath)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}

	vocab, err := catalog.LoadVocabulary(cfg.Retrieval.VocabularyPath)
	vocabLoaded := err == nil && !vocab.IsEmpty()
	if err != nil {
		logger.Warn("Filterable vocabulary unavailable, brand and category filters disabled",
			zap.String("path", cfg.Retrieval.VocabularyPath),
			zap.Error(err),
		)
		vocab = catalog.Vocabulary{}
	}

	var kv *dbRedis.Store
	switch cfg.Database.Driver {
	case config.DriverOpenSearch:
		a.Backend, err = a.openSearchBackend(ctx)
	default:
		kv, a.Backend, err = a.redisBackend(ctx)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Logger:     logger,
	})
	queryEmbedder := a.buildEmbedder(base, kv, cfg.Embedding.QueryInstruction)
	docEmbedder := a.buildEmbedder(base, kv, cfg.Embedding.DocumentInstruction)

	a.Search = searchuc.New(
		a.Backend, queryEmbedder,
		extract.New(lex, vocab), routing.New(lex.Routing),
		searchuc.LimitsFromConfig(cfg.Retrieval.Limits()), logger,
	)
	a.Ingest = ingestuc.New(a.Backend, docEmbedder, logger).WithEmbedBatch(cfg.Ingest.EmbedBatch)
	a.Health = healthuc.New(a.Backend, base).
		WithVocabulary(vocabLoaded).
		WithCollections(a.Backend, collection.All())

	if cfg.Chat.Enabled {
		chatCfg := &openaiTransport.ChatConfig{
			APIKey:          cfg.Chat.APIKey,
			BaseURL:         cfg.Chat.BaseURL,
			Model:           cfg.Chat.Model,
			ModerationModel: cfg.Chat.ModerationModel,
			Timeout:         time.Duration(cfg.Chat.TimeoutSec) * time.Second,
			Logger:          logger,
		}
		// A nil interface, not a typed nil pointer, disables moderation.
		var moderator domain.Moderator
		if cfg.Chat.ModerationModel != "" {
			moderator = openaiTransport.NewModerator(chatCfg)
		}
		a.Chat = chatuc.New(a.Search, openaiTransport.NewChat(chatCfg), moderator, logger).
			WithTemperature(cfg.Chat.Temperature)
	}

	logger.Info("Services ready",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("vocabulary", vocabLoaded),
		zap.Bool("chat", cfg.Chat.Enabled),
	)
	return a, nil
}

// Close releases backend connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) redisBackend(ctx context.Context) (*dbRedis.Store, Backend, error) {
	cfg := a.Config.Database
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create redis store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		return nil, nil, fmt.Errorf("redis not ready: %w", err)
	}
	a.Logger.Info("Connected to Redis", zap.Strings("addrs", cfg.Addrs))

	colls := collectionrepo.New(store, a.Config.Embedding.Dimensions).
		WithHNSW(collectionrepo.HNSWConfig{M: cfg.HNSWM, EFConstruct: cfg.HNSWEFConstruct}).
		WithBatchSize(a.Config.Ingest.BatchSize)

	return store, &redisBackend{colls: colls, search: searchrepo.New(store), pinger: store}, nil
}

func (a *App) openSearchBackend(ctx context.Context) (Backend, error) {
	cfg := a.Config.Database
	store, err := osrepo.New(osrepo.Config{
		Addresses:   cfg.Addrs,
		Username:    cfg.Username,
		Password:    cfg.Password,
		InsecureSSL: cfg.InsecureSkipVerify,
		VectorDim:   a.Config.Embedding.Dimensions,
		HNSWM:       cfg.HNSWM,
		EFConstruct: cfg.HNSWEFConstruct,
		BatchSize:   a.Config.Ingest.BatchSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create opensearch store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("opensearch not ready: %w", err)
	}
	a.Logger.Info("Connected to OpenSearch", zap.Strings("addrs", cfg.Addrs))
	return store, nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction.
// The cache needs the Redis KV store and is skipped on other backends.
func (a *App) buildEmbedder(base domain.Embedder, kv *dbRedis.Store, instruction string) domain.Embedder {
	cfg := a.Config.Embedding

	embedder := base
	if kv != nil && cfg.CacheTTLSec > 0 {
		embedder = embcache.New(base, kv, metrics.EmbeddingCacheTotal, a.Logger).
			WithTTL(time.Duration(cfg.CacheTTLSec) * time.Second).
			WithNamespace(cfg.Model)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, a.Logger).
		WithDimensions(cfg.Dimensions)

	// Outermost, so the cache key includes the instruction.
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// redisBackend joins the Redis collection and search repositories.
type redisBackend struct {
	colls  *collectionrepo.Repo
	search *searchrepo.Repo
	pinger interface{ Ping(ctx context.Context) error }
}

func (b *redisBackend) Ping(ctx context.Context) error { return b.pinger.Ping(ctx) }

func (b *redisBackend) Exists(ctx context.Context, name collection.Name) (bool, error) {
	return b.colls.Exists(ctx, name)
}

func (b *redisBackend) Reset(ctx context.Context, name collection.Name) error {
	return b.colls.Reset(ctx, name)
}

func (b *redisBackend) Upsert(ctx context.Context, name collection.Name, records []document.Record) (int, error) {
	return b.colls.Upsert(ctx, name, records)
}

func (b *redisBackend) Count(ctx context.Context, name collection.Name) (int, error) {
	return b.colls.Count(ctx, name)
}

func (b *redisBackend) Query(
	ctx context.Context, coll collection.Name, vector []float32, k int, pred filter.Expression,
) ([]result.Item, error) {
	return b.search.Query(ctx, coll, vector, k, pred)
}
