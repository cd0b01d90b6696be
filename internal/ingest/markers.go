package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// markerTTL bounds marker growth. After expiry the message is re-extracted
// once; per-candidate dedup keeps the rows unique and a clean pass sets the
// marker again.
const markerTTL = 30 * 24 * time.Hour

// RedisMarkers records which messages have been fully processed, so a later
// run can skip them before paying any extraction cost.
type RedisMarkers struct {
	rdb *redis.Client
}

// NewRedisMarkers returns markers backed by the given Redis client.
func NewRedisMarkers(rdb *redis.Client) *RedisMarkers {
	return &RedisMarkers{rdb: rdb}
}

func markerKey(msgID string) string {
	return "ingest:done:" + msgID
}

// Done reports whether the message has a completion marker.
func (m *RedisMarkers) Done(ctx context.Context, msgID string) (bool, error) {
	n, err := m.rdb.Exists(ctx, markerKey(msgID)).Result()
	if err != nil {
		return false, fmt.Errorf("check marker: %w", err)
	}
	return n > 0, nil
}

// MarkDone records a completion marker for the message.
func (m *RedisMarkers) MarkDone(ctx context.Context, msgID string) error {
	if err := m.rdb.Set(ctx, markerKey(msgID), "1", markerTTL).Err(); err != nil {
		return fmt.Errorf("set marker: %w", err)
	}
	return nil
}
