package message

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"inlet/internal/constants"
	"inlet/internal/logger"
	"inlet/pkg/metrics"
)

// CachedStore puts a Redis fast-path in front of Insert: ids already marked
// in Redis short-circuit to duplicate without hitting SQL. The marker is set
// only after the SQL insert settled an id, so the unique constraint stays the
// single source of truth; any Redis failure falls through to SQL.
type CachedStore struct {
	Store

	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		Store:  inner,
		client: client,
		ttl:    ttl,
		logger: log,
	}
}

func (s *CachedStore) Insert(ctx context.Context, msg *Message) (bool, error) {
	key := constants.CacheKeyPrefixMessage + msg.ID

	seen, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		metrics.FallbackUsageTotal.WithLabelValues("duplicate_cache", constants.FallbackAllow).Inc()
		s.logger.WarnwCtx(ctx, "Redis duplicate check failed, falling through to SQL",
			"error", err,
		)
	} else if seen > 0 {
		metrics.DuplicateCacheTotal.WithLabelValues("hit").Inc()
		return false, nil
	} else {
		metrics.DuplicateCacheTotal.WithLabelValues("miss").Inc()
	}

	created, err := s.Store.Insert(ctx, msg)
	if err != nil {
		return false, err
	}

	// Best effort: the id is durably settled either way.
	if err := s.client.Set(ctx, key, 1, s.ttl).Err(); err != nil {
		s.logger.DebugwCtx(ctx, "Failed to set duplicate marker",
			"error", err,
		)
	}

	return created, nil
}
