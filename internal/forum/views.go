package forum

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// viewWindow is how long a viewer stays "seen" for a thread.
const viewWindow = 30 * time.Minute

// RedisViewMarker deduplicates thread views per viewer with a short-lived
// SET NX key. The counter itself lives in postgres; redis only answers
// "have they looked recently".
type RedisViewMarker struct {
	rdb *redis.Client
}

// NewRedisViewMarker builds a marker on the given client.
func NewRedisViewMarker(rdb *redis.Client) *RedisViewMarker {
	return &RedisViewMarker{rdb: rdb}
}

// FirstView claims the (viewer, thread) marker. It returns true when the
// viewer has not seen the thread within the window.
func (m *RedisViewMarker) FirstView(ctx context.Context, viewer string, threadID uuid.UUID) (bool, error) {
	key := fmt.Sprintf("views:%s:%s", threadID, viewer)
	return m.rdb.SetNX(ctx, key, 1, viewWindow).Result()
}
