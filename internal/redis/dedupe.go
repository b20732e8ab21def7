package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Dedupe key pattern:
// - sync:seen:{device_id}:{envelope_key} - TTL, one entry per applied envelope;
//   removed again when the apply fails

const DefaultSeenTTL = 10 * time.Minute

// SeenStore remembers which sync envelopes a device already applied so a
// republished record is not applied twice.
type SeenStore struct {
	client   *redis.Client
	deviceID string
	ttl      time.Duration
}

func NewSeenStore(client *redis.Client, deviceID string, ttl time.Duration) *SeenStore {
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return &SeenStore{client: client, deviceID: deviceID, ttl: ttl}
}

// MarkSeen returns true the first time key is seen within the TTL.
func (s *SeenStore) MarkSeen(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, s.key(key), 1, s.ttl).Result()
}

func (s *SeenStore) Forget(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *SeenStore) key(envelopeKey string) string {
	return fmt.Sprintf("sync:seen:%s:%s", s.deviceID, envelopeKey)
}
