package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inlet/internal/constants"
	"inlet/internal/message"
	pkgerrors "inlet/pkg/errors"
)

func TestMessageRepository_InsertAndQuery(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	store := message.NewSQLStore(infra.DB, constants.DialectPostgres)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	created, err := store.Insert(ctx, &message.Message{
		ID:         "pg-1",
		Sender:     "alice",
		Body:       "hello from postgres",
		ReceivedAt: base,
	})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.Insert(ctx, &message.Message{
		ID:         "pg-1",
		Sender:     "mallory",
		Body:       "replay",
		ReceivedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Get(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Sender)

	_, err = store.Get(ctx, "pg-missing")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMessageRepository_FiltersOnPostgres(t *testing.T) {
	infra := SetupTestInfra(t)

	ctx := context.Background()
	store := message.NewSQLStore(infra.DB, constants.DialectPostgres)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, spec := range []struct {
		sender, body string
	}{
		{"alice", "deploy started"},
		{"bob", "Deploy finished"},
		{"alice", "progress 50%"},
	} {
		created, err := store.Insert(ctx, &message.Message{
			ID:         fmt.Sprintf("pgf-%d", i),
			Sender:     spec.sender,
			Body:       spec.body,
			ReceivedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
		require.True(t, created)
	}

	msgs, err := store.List(ctx, message.Filter{Query: "deploy"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// LIKE metacharacters in the query are literals.
	msgs, err = store.List(ctx, message.Filter{Query: "50%"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "pgf-2", msgs[0].ID)

	since := base.Add(time.Second)
	total, err := store.Count(ctx, message.Filter{Since: &since})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	agg, err := store.Aggregates(ctx, message.Filter{}, constants.TopSendersLimit)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.Total)
	assert.Equal(t, 2, agg.UniqueSenders)
	require.NotEmpty(t, agg.TopSenders)
	assert.Equal(t, "alice", agg.TopSenders[0].Sender)
	require.NotNil(t, agg.First)
	assert.True(t, agg.First.Equal(base))
}

func TestMessageRepository_DuplicateCache(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true)

	ctx := context.Background()
	inner := message.NewSQLStore(infra.DB, constants.DialectPostgres)
	store := message.NewCachedStore(inner, infra.RedisClient, time.Minute, testLogger())

	msg := &message.Message{
		ID:         "cache-1",
		Sender:     "alice",
		Body:       "cached",
		ReceivedAt: time.Now().UTC(),
	}

	created, err := store.Insert(ctx, msg)
	require.NoError(t, err)
	assert.True(t, created)

	// Second delivery is short-circuited by the cache marker.
	created, err = store.Insert(ctx, msg)
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := infra.RedisClient.Exists(ctx, constants.CacheKeyPrefixMessage+"cache-1").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)
}
