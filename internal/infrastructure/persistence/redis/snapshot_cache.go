package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/purplepatch/notify-hub/internal/application/scenario"
	"github.com/purplepatch/notify-hub/internal/domain/leaderboard"
)

// snapshotKeyPrefix namespaces cached leaderboard snapshots.
const snapshotKeyPrefix = "quizboard:snapshot:"

// SnapshotCache wraps a rank source with a short-lived Redis cache. The
// evening scenarios run within minutes of each other and hit the same
// provider URLs; caching keeps that to one upstream fetch per URL per TTL.
// Cache errors degrade to a direct fetch, never to a scenario failure.
type SnapshotCache struct {
	source scenario.RankSource
	cache  *Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewSnapshotCache decorates a rank source with caching.
func NewSnapshotCache(source scenario.RankSource, cache *Cache, ttl time.Duration, logger *slog.Logger) *SnapshotCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCache{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// Snapshot implements scenario.RankSource.
func (s *SnapshotCache) Snapshot(ctx context.Context, packageName, url string) (leaderboard.Snapshot, error) {
	key := snapshotKeyPrefix + url

	var cached leaderboard.Snapshot
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		cached.PackageName = packageName
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		s.logger.Warn("snapshot cache read failed", "url", url, "error", err)
	}

	snap, err := s.source.Snapshot(ctx, packageName, url)
	if err != nil {
		return leaderboard.Snapshot{}, fmt.Errorf("fetch snapshot: %w", err)
	}

	if err := s.cache.Set(ctx, key, snap, s.ttl); err != nil {
		s.logger.Warn("snapshot cache write failed", "url", url, "error", err)
	}
	return snap, nil
}
