package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// cursorKey holds the next getUpdates offset for the polling ingress.
const cursorKey = "telegram:poll:cursor"

// CursorStore persists the polling cursor across restarts so the poller
// never reprocesses updates it already attempted.
type CursorStore struct {
	cache *Cache
}

// NewCursorStore creates a cursor store over the cache.
func NewCursorStore(cache *Cache) *CursorStore {
	return &CursorStore{cache: cache}
}

// Load returns the stored cursor, or zero when none was ever saved.
func (s *CursorStore) Load(ctx context.Context) (int64, error) {
	val, err := s.cache.GetString(ctx, cursorKey)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return 0, nil
		}
		return 0, fmt.Errorf("load poll cursor: %w", err)
	}

	cursor, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse poll cursor %q: %w", val, err)
	}
	return cursor, nil
}

// Save stores the cursor. Cursors never expire.
func (s *CursorStore) Save(ctx context.Context, cursor int64) error {
	err := s.cache.SetString(ctx, cursorKey, strconv.FormatInt(cursor, 10), time.Duration(0))
	if err != nil {
		return fmt.Errorf("save poll cursor: %w", err)
	}
	return nil
}
