package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const inflightKeyPrefix = "inflight:"

// InflightRepo marks one-time callback identifiers so duplicate deliveries
// of the same interaction are dropped. Markers expire server-side.
type InflightRepo struct {
	client *goredis.Client
}

func NewInflightRepo(client *goredis.Client) *InflightRepo {
	return &InflightRepo{client: client}
}

// MarkOnce returns true when this call inserted the marker, false when the
// identifier was already in flight.
func (r *InflightRepo) MarkOnce(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if ttl <= 0 {
		return false, fmt.Errorf("inflight ttl must be positive")
	}

	inserted, err := r.client.SetNX(ctx, inflightKeyPrefix+id, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark inflight callback: %w", err)
	}

	return inserted, nil
}
