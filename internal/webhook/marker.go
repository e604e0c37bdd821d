package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	markerPrefix     = "webhook:delivered:"
	defaultMarkerTTL = 72 * time.Hour
)

// DeliveryMarker remembers event ids that were reconciled successfully.
// Skipping a marked event is an optimisation; reconciliation stays correct
// without it.
type DeliveryMarker interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// RedisMarker stores delivery markers as expiring redis keys.
type RedisMarker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisMarker creates a marker. A non-positive ttl means three days.
func NewRedisMarker(client *redis.Client, ttl time.Duration) *RedisMarker {
	if ttl <= 0 {
		ttl = defaultMarkerTTL
	}
	return &RedisMarker{client: client, ttl: ttl}
}

func (m *RedisMarker) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := m.client.Exists(ctx, markerPrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (m *RedisMarker) Mark(ctx context.Context, eventID string) error {
	return m.client.Set(ctx, markerPrefix+eventID, time.Now().UTC().Unix(), m.ttl).Err()
}

var _ DeliveryMarker = (*RedisMarker)(nil)
