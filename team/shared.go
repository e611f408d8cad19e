// Package team shares own-snake registrations between agent processes.
//
// Every process keeps answering IsOwn from its local hunt.Registry. Shared
// mirrors registrations into a Redis set per match and pulls the set back
// with Sync, so snakes started by other processes are known before the
// local policy runs.
package team

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brensch/hunter/hunt"
)

const DefaultTTL = 2 * time.Hour

// OwnKey returns the Redis set holding the own snakes of a match.
// Format: hunter:{namespace}:match:{match_id}:own
func OwnKey(namespace, matchID string) string {
	return fmt.Sprintf("hunter:%s:match:%s:own", namespace, matchID)
}

// Shared is safe for concurrent use.
type Shared struct {
	rdb       *redis.Client
	local     *hunt.Registry
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewShared connects to Redis. Agents cooperate only when they use the same
// namespace. ttl bounds how long a match set outlives its last registration.
func NewShared(redisOpts *redis.Options, namespace string, local *hunt.Registry, ttl time.Duration, logger *slog.Logger) (*Shared, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	if local == nil {
		return nil, fmt.Errorf("local registry is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Shared{
		rdb:       redis.NewClient(redisOpts),
		local:     local,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger.With("component", "team"),
	}, nil
}

func (s *Shared) Close() error {
	return s.rdb.Close()
}

func (s *Shared) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Register records agentID locally, then publishes it for other processes.
// The local registration stands even if Redis fails.
func (s *Shared) Register(ctx context.Context, matchID, agentID string) error {
	s.local.Register(matchID, agentID)

	key := OwnKey(s.namespace, matchID)
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, key, agentID)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish own snake to Redis: %w", err)
	}
	return nil
}

// Sync copies every published own snake of matchID into the local registry
// and returns how many the match has.
func (s *Shared) Sync(ctx context.Context, matchID string) (int, error) {
	members, err := s.rdb.SMembers(ctx, OwnKey(s.namespace, matchID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read own snakes from Redis: %w", err)
	}
	for _, id := range members {
		s.local.Register(matchID, id)
	}
	return len(members), nil
}

// Forget drops matchID locally. The Redis set is left to expire since other
// processes may still be playing the match.
func (s *Shared) Forget(matchID string) {
	s.local.Forget(matchID)
}
