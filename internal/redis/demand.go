package redis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// demandTTL bounds how long an open negotiation counts toward demand if
// the release is lost (process crash between create and terminal state).
const demandTTL = 10 * time.Minute

// DemandStore tracks how many negotiations are currently open per
// geographic cell. The count feeds the demand factor of the fare
// estimator.
type DemandStore struct {
	client *redis.Client
}

// NewDemandStore creates a new DemandStore.
func NewDemandStore(client *redis.Client) *DemandStore {
	return &DemandStore{client: client}
}

// cellKey buckets coordinates into ~11km cells (one decimal degree / 10).
func cellKey(lat, lng float64) string {
	return fmt.Sprintf("demand:cell:%.1f:%.1f", roundCell(lat), roundCell(lng))
}

func roundCell(v float64) float64 {
	return math.Round(v*10) / 10
}

// Register counts a newly opened negotiation at the pickup location.
func (s *DemandStore) Register(ctx context.Context, lat, lng float64) error {
	key := cellKey(lat, lng)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, demandTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// Release removes a closed negotiation from the cell count.
func (s *DemandStore) Release(ctx context.Context, lat, lng float64) error {
	key := cellKey(lat, lng)

	n, err := s.client.Decr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n < 0 {
		// Counter drifted below zero (TTL fired before release); reset.
		return s.client.Del(ctx, key).Err()
	}
	return nil
}

// Count returns the number of open negotiations in the location's cell.
func (s *DemandStore) Count(ctx context.Context, lat, lng float64) (int, error) {
	n, err := s.client.Get(ctx, cellKey(lat, lng)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}
