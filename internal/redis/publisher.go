package redis

import (
	"context"

	"sentinal-threads/internal/events"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ events.Publisher = (*Publisher)(nil)

// Publisher sends sync envelopes over Redis pub/sub. Delivery is at most
// once per connected device; the outbox keeps the record until Publish
// succeeds.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "publish to %s", channel)
	}
	return nil
}
