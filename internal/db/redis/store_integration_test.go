//go:build integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kailas-cloud/prodrag/internal/db"
	"github.com/kailas-cloud/prodrag/internal/domain/search/filter"
)

func startRedisStack(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx,
		"redis/redis-stack-server:7.4.0-v1",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	store, err := NewStore(Config{Addrs: []string{host + ":" + port.Port()}})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.WaitForReady(ctx, 30*time.Second))
	return store
}

func TestIntegration_KNNWithPreFilter(t *testing.T) {
	store := startRedisStack(t)
	ctx := context.Background()

	def := db.NewIndex("it:idx:products").
		Prefix("it:products:").
		TagWithOpts("brand", "|", false).
		Numeric("price").
		VectorHNSW("vector", 2, db.DistanceCosine, 16, 200).
		MustBuild()
	require.NoError(t, store.CreateIndex(ctx, def))

	items := []db.HashSetItem{
		{Key: "it:products:a", Fields: map[string]string{
			"text": "cheap", "brand": "Snap", "price": "199", "vector": vectorToBytes([]float32{1, 0}),
		}},
		{Key: "it:products:b", Fields: map[string]string{
			"text": "pricey", "brand": "Titan", "price": "1299", "vector": vectorToBytes([]float32{0.9, 0.1}),
		}},
		{Key: "it:products:c", Fields: map[string]string{
			"text": "orthogonal", "brand": "Snap", "price": "250", "vector": vectorToBytes([]float32{0, 1}),
		}},
	}
	require.NoError(t, store.HSetMulti(ctx, items))

	require.Eventually(t, func() bool {
		n, err := store.SearchCount(ctx, "it:idx:products", "*")
		return err == nil && n == 3
	}, 10*time.Second, 100*time.Millisecond)

	expr, err := filter.AnyOf(filter.LessThan("price", 300))
	require.NoError(t, err)

	res, err := store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    "it:idx:products",
		Filters:      expr,
		Vector:       []float32{1, 0},
		K:            5,
		ReturnFields: []string{"text", "brand", "price"},
		RawScores:    true,
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	require.Equal(t, "it:products:a", res.Entries[0].Key)
	require.LessOrEqual(t, res.Entries[0].Score, res.Entries[1].Score)

	require.NoError(t, store.DropIndex(ctx, "it:idx:products", true))

	_, err = store.SearchKNN(ctx, &db.KNNQuery{IndexName: "it:idx:products", Vector: []float32{1, 0}, K: 1})
	require.True(t, errors.Is(err, db.ErrIndexNotFound), "got %v", err)
}
