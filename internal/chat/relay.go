package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/redis"
)

// RedisRelay carries chat envelopes between instances over redis pub/sub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	logg    *logger.Logger
}

func NewRedisRelay(client *redis.Client, channel string, logg *logger.Logger) (*RedisRelay, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if channel == "" {
		return nil, errors.New("channel required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &RedisRelay{client: client, channel: client.ChannelKey(channel), logg: logg}, nil
}

func (r *RedisRelay) Publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode chat envelope: %w", err)
	}
	return r.client.Publish(ctx, r.channel, payload)
}

// Run delivers envelopes from other instances to hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context, hub *Hub) error {
	sub, err := r.client.Subscribe(ctx, r.channel)
	if err != nil {
		return err
	}
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return errors.New("chat relay subscription closed")
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "dropping malformed chat envelope")
				continue
			}
			hub.Deliver(env)
		}
	}
}
